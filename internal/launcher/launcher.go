// Package launcher opens listing URLs outside the terminal.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedURL is returned for anything that is not an absolute http(s) URL
var ErrUnsupportedURL = errors.New("only http and https URLs can be opened")

// startFunc starts a process without waiting for it
type startFunc func(name string, args ...string) error

func startCommand(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// Launcher opens URLs in the configured browser or the system default.
// Links are handed over as a bare argument, so the browser sees no referrer.
type Launcher struct {
	command string   // configured browser command, empty for system default
	args    []string // additional arguments for the browser
	goos    string
	start   startFunc
	logger  *slog.Logger
}

// New creates a Launcher. An empty command means the system default handler.
func New(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: strings.TrimSpace(command),
		args:    args,
		goos:    runtime.GOOS,
		start:   startCommand,
		logger:  logger,
	}
}

// Open launches rawURL in a new browser window or tab
func (l *Launcher) Open(rawURL string) error {
	if err := validate(rawURL); err != nil {
		return err
	}

	name, args := l.commandFor(rawURL)
	l.logger.Info("opening url", "command", name, "url", rawURL)

	if err := l.start(name, args...); err != nil {
		l.logger.Warn("failed to open url", "command", name, "error", err)
		return fmt.Errorf("failed to open %s: %w", rawURL, err)
	}
	return nil
}

// commandFor returns the process to start for rawURL
func (l *Launcher) commandFor(rawURL string) (string, []string) {
	if l.command != "" {
		args := append([]string{}, l.args...)
		return l.command, append(args, rawURL)
	}

	switch l.goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{rawURL}
	}
}

func validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	return nil
}
