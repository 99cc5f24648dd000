// Package cli implements the headless subcommands. Each command runs one
// operation against the same services the TUI uses and prints the outcome
// as a table, JSON or YAML.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/marketly/marketly/internal/config"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/service"
)

// ErrUsage is returned for malformed command lines. The usage text has
// already been printed.
var ErrUsage = errors.New("invalid usage")

// ErrHelp is returned when a command's usage was requested with -h
var ErrHelp = errors.New("help requested")

// PasswordReader reads a password without echoing it
type PasswordReader func() (string, error)

// App holds what the commands need
type App struct {
	Search   *service.SearchService
	Saved    *service.SavedSearchService
	Auth     domain.IdentityProvider // nil when no identity service is configured
	Defaults config.SearchConfig
	Config   *config.Config // effective configuration, for the config command
	Version  string

	Out io.Writer
	Err io.Writer
	In  io.Reader

	// ReadPassword reads without echo. When nil, passwords are read as
	// plain lines from In.
	ReadPassword PasswordReader

	Logger *slog.Logger

	in *bufio.Reader
}

var usages = map[string]string{
	"search":  "search [-s sources] [-n limit] [-o format] <query>",
	"saved":   "saved list|save|delete|run|run-all ...",
	"login":   "login [-e email]",
	"signup":  "signup [-e email]",
	"logout":  "logout",
	"whoami":  "whoami [-o format]",
	"health":  "health [-o format]",
	"sources": "sources [-o format]",
	"version": "version",
	"config":  "config [show|save] [-o format] [-dir path]",
}

var commands = map[string]func(a *App, ctx context.Context, args []string) error{
	"search":  (*App).runSearch,
	"saved":   (*App).runSaved,
	"login":   (*App).runLogin,
	"signup":  (*App).runSignUp,
	"logout":  (*App).runLogout,
	"whoami":  (*App).runWhoAmI,
	"health":  (*App).runHealth,
	"sources": (*App).runSources,
	"version": (*App).runVersion,
	"config":  (*App).runConfig,
}

// IsCommand reports whether name is a headless subcommand
func IsCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

// Usage lists the subcommands
func Usage() string {
	names := make([]string, 0, len(usages))
	for name := range usages {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", usages[name])
	}
	return b.String()
}

// Run dispatches args[0] to its command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.Err, Usage())
		return ErrUsage
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.Err, "unknown command %q\n\n%s", args[0], Usage())
		return ErrUsage
	}

	a.logger().Debug("running command", "command", args[0])
	return run(a, ctx, args[1:])
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// flags returns a flag set that reports errors to a.Err
func (a *App) flags(name string) *flag.FlagSet {
	usage := usages[strings.Fields(name)[0]]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	fs.Usage = func() {
		fmt.Fprintf(a.Err, "Usage: marketly %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args, mapping flag errors to ErrUsage. A help request
// returns ErrHelp once usage has been printed; the command must not run.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return ErrUsage
	}
	return nil
}

func outputFlag(fs *flag.FlagSet) *string {
	return fs.String("o", string(FormatTable), "output format: table, json or yaml")
}

func (a *App) runVersion(_ context.Context, _ []string) error {
	fmt.Fprintf(a.Out, "marketly %s\n", a.Version)
	return nil
}

func (a *App) runHealth(ctx context.Context, args []string) error {
	fs := a.flags("health")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	health, err := a.Search.Health(ctx)
	if err != nil {
		return err
	}
	return write(a.Out, format, health, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, health.Status)
		return err
	})
}

func (a *App) runSources(ctx context.Context, args []string) error {
	fs := a.flags("sources")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	sources, err := a.Search.Sources(ctx)
	if err != nil {
		return err
	}
	return write(a.Out, format, map[string][]string{"sources": sources}, func(w io.Writer) error {
		for _, s := range sources {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	})
}
