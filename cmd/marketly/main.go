package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/cli"
	"github.com/marketly/marketly/internal/config"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/identity"
	"github.com/marketly/marketly/internal/launcher"
	"github.com/marketly/marketly/internal/log"
	"github.com/marketly/marketly/internal/marketapi"
	"github.com/marketly/marketly/internal/service"
	"github.com/marketly/marketly/internal/session"
	"github.com/marketly/marketly/internal/store"
	"github.com/marketly/marketly/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		configPath  string
		apiURL      string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "config file (default ~/.config/marketly/config.yaml)")
	flag.StringVar(&apiURL, "api", "", "backend base URL (overrides api.base_url)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: marketly [flags] [command]\n\nWithout a command the interactive client starts.\n\n%s\nFlags:\n", cli.Usage())
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("marketly %s\n", Version)
		return
	}

	if err := run(configPath, apiURL, flag.Args()); err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return
		}
		if !errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(configPath, apiURL string, args []string) error {
	if len(args) > 0 && !cli.IsCommand(args[0]) {
		flag.Usage()
		return cli.ErrUsage
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		cfg.Normalize()
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting marketly", "version", Version, "api", cfg.API.BaseURL)

	// Identity provider and its local session storage
	var idp *identity.Client
	if cfg.HasAuthProvider() {
		st, err := store.NewSessionStore(cfg.Session.File, cfg.Auth.URL)
		if err != nil {
			logger.Warn("session file unavailable, keeping session in memory", "error", err)
			st, _ = store.NewSessionStore("", cfg.Auth.URL)
		}
		defer st.Close()
		idp = identity.NewClient(cfg.Auth.URL, cfg.Auth.AnonKey, st, logger)
	}

	if len(args) > 0 {
		return runCommand(cfg, idp, logger, args)
	}
	return runTUI(cfg, idp, logger)
}

func newServices(cfg *config.Config, token marketapi.TokenSource, logger *slog.Logger) (*service.SearchService, *service.SavedSearchService) {
	var opts []marketapi.Option
	if token != nil && cfg.API.SendAccessToken {
		opts = append(opts, marketapi.WithTokenSource(token))
	}
	client := marketapi.NewClient(cfg.API.BaseURL, logger, opts...)
	return service.NewSearchService(client, logger), service.NewSavedSearchService(client, logger)
}

// runCommand runs one headless subcommand
func runCommand(cfg *config.Config, idp *identity.Client, logger *slog.Logger, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var token marketapi.TokenSource
	var auth domain.IdentityProvider
	if idp != nil {
		auth = idp
		token = func() string {
			s, err := idp.GetSession(ctx)
			if err != nil || s == nil {
				return ""
			}
			return s.AccessToken
		}
	}
	searchSvc, savedSvc := newServices(cfg, token, logger)

	app := &cli.App{
		Search:       searchSvc,
		Saved:        savedSvc,
		Auth:         auth,
		Defaults:     cfg.Search,
		Config:       cfg,
		Version:      Version,
		Out:          os.Stdout,
		Err:          os.Stderr,
		In:           os.Stdin,
		ReadPassword: cli.TerminalPassword(os.Stdin),
		Logger:       logger,
	}
	return app.Run(ctx, args)
}

// runTUI starts the interactive client
func runTUI(cfg *config.Config, idp *identity.Client, logger *slog.Logger) error {
	var (
		auth  domain.IdentityProvider
		sess  *session.Provider
		token marketapi.TokenSource
	)
	if idp != nil {
		auth = idp
		sess = session.NewProvider(idp, logger)
		sess.Start(context.Background())
		// Closed last; TokenSource goes blank rather than panicking for late requests
		defer sess.Close()
		token = sess.TokenSource
	}
	searchSvc, savedSvc := newServices(cfg, token, logger)

	// Create launcher (uses configured browser or system default)
	opener := launcher.New(cfg.Browser.Command, cfg.Browser.Args, logger)

	// Create TUI model
	model := tui.NewModel(searchSvc, savedSvc, auth, sess, opener, tui.Options{
		BaseURL: cfg.API.BaseURL,
		Query:   cfg.Search.Query,
		Sources: cfg.Search.Sources,
		Limit:   cfg.Search.Limit,
		Logger:  logger,
	})

	// Run the TUI
	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
