package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marketly/marketly/internal/config"
)

// runConfig shows the effective configuration or writes it as config.yaml
func (a *App) runConfig(_ context.Context, args []string) error {
	if a.Config == nil {
		return errors.New("no configuration loaded")
	}

	sub := "show"
	if len(args) > 0 && (args[0] == "show" || args[0] == "save") {
		sub, args = args[0], args[1:]
	}

	fs := a.flags("config")
	out := outputFlag(fs)
	dir := fs.String("dir", "", "directory to write config.yaml to (save only)")
	if err := parse(fs, args); err != nil {
		return err
	}

	if sub == "save" {
		path, err := config.SaveConfig(a.Config, *dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Configuration saved to %s\n", path)
		return nil
	}

	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}
	c := a.Config
	view := map[string]any{
		"api":     map[string]any{"base_url": c.API.BaseURL, "send_access_token": c.API.SendAccessToken},
		"auth":    map[string]any{"url": c.Auth.URL, "anon_key_set": c.Auth.AnonKey != ""},
		"search":  map[string]any{"query": c.Search.Query, "sources": c.Search.Sources, "limit": c.Search.Limit},
		"session": map[string]any{"file": c.Session.File},
		"browser": map[string]any{"command": c.Browser.Command, "args": c.Browser.Args},
		"logging": map[string]any{"file": c.Logging.File, "level": c.Logging.Level},
	}
	return write(a.Out, format, view, func(w io.Writer) error {
		t := newTable("KEY", "VALUE")
		t.Row("api.base_url", c.API.BaseURL)
		t.Row("api.send_access_token", fmt.Sprint(c.API.SendAccessToken))
		t.Row("auth.url", c.Auth.URL)
		t.Row("search.query", c.Search.Query)
		t.Row("search.sources", c.Search.Sources)
		t.Row("search.limit", fmt.Sprint(c.Search.Limit))
		t.Row("session.file", c.Session.File)
		t.Row("browser.command", c.Browser.Command)
		t.Row("logging.file", c.Logging.File)
		t.Row("logging.level", c.Logging.Level)
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}
