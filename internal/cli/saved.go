package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/service"
)

func (a *App) runSaved(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(a.Err, "Usage: marketly %s\n", usages["saved"])
		return ErrUsage
	}

	switch args[0] {
	case "list":
		return a.savedList(ctx, args[1:])
	case "save":
		return a.savedSave(ctx, args[1:])
	case "delete":
		return a.savedDelete(ctx, args[1:])
	case "run":
		return a.savedRun(ctx, args[1:])
	case "run-all":
		return a.savedRunAll(ctx, args[1:])
	}

	fmt.Fprintf(a.Err, "unknown saved command %q\n", args[0])
	return ErrUsage
}

func (a *App) savedList(ctx context.Context, args []string) error {
	fs := a.flags("saved list")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	list, err := a.Saved.List(ctx)
	if err != nil {
		return err
	}
	return write(a.Out, format, list, func(w io.Writer) error {
		if len(list) == 0 {
			_, err := fmt.Fprintln(w, "No saved searches yet.")
			return err
		}
		t := newTable("ID", "QUERY", "SOURCES", "CREATED")
		for _, s := range list {
			t.Row(strconv.FormatInt(s.ID, 10), s.Query, strings.Join(s.Sources, ", "), s.CreatedAt)
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}

func (a *App) savedSave(ctx context.Context, args []string) error {
	fs := a.flags("saved save")
	sources := fs.String("s", a.Defaults.Sources, "comma-separated sources")
	if err := parse(fs, args); err != nil {
		return err
	}

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return domain.ErrBlankQuery
	}
	if err := a.Saved.Create(ctx, query, *sources); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Saved %q (%s)\n", query, strings.Join(domain.ParseSources(*sources), ", "))
	return nil
}

func (a *App) savedDelete(ctx context.Context, args []string) error {
	fs := a.flags("saved delete")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := savedID(fs.Args())
	if err != nil {
		return err
	}

	if err := a.Saved.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted saved search %d\n", id)
	return nil
}

func (a *App) savedRun(ctx context.Context, args []string) error {
	fs := a.flags("saved run")
	limit := fs.Int("n", a.Defaults.Limit, "maximum results")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}
	id, err := savedID(fs.Args())
	if err != nil {
		return err
	}

	resp, err := a.Saved.Run(ctx, id, *limit)
	if err != nil {
		return err
	}
	return writeResponse(a.Out, format, resp)
}

// runAllRow is one line of run-all output
type runAllRow struct {
	ID       int64                  `json:"id"`
	Query    string                 `json:"query"`
	Sources  []string               `json:"sources"`
	Count    int                    `json:"count"`
	Error    string                 `json:"error,omitempty"`
	Response *domain.SearchResponse `json:"response,omitempty"`
}

func (a *App) savedRunAll(ctx context.Context, args []string) error {
	fs := a.flags("saved run-all")
	limit := fs.Int("n", a.Defaults.Limit, "maximum results per search")
	concurrency := fs.Int("c", 4, "searches in flight at once")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	results, err := a.Saved.RunAll(ctx, *limit, *concurrency)
	if err != nil {
		return err
	}

	rows := make([]runAllRow, len(results))
	failed := 0
	for i, r := range results {
		rows[i] = runAllRow{ID: r.Saved.ID, Query: r.Saved.Query, Sources: r.Saved.Sources}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
			failed++
			continue
		}
		rows[i].Count = r.Response.Count
		rows[i].Response = r.Response
	}

	if err := write(a.Out, format, rows, func(w io.Writer) error {
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "No saved searches yet.")
			return err
		}
		t := newTable("ID", "QUERY", "COUNT", "ERROR")
		for _, r := range rows {
			count := strconv.Itoa(r.Count)
			if r.Error != "" {
				count = "-"
			}
			t.Row(strconv.FormatInt(r.ID, 10), r.Query, count, r.Error)
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	}); err != nil {
		return err
	}

	if failed > 0 {
		return &RunAllError{Failed: failed, Total: len(results), Results: results}
	}
	return nil
}

// RunAllError reports that some saved searches failed to run
type RunAllError struct {
	Failed  int
	Total   int
	Results []service.RunResult
}

func (e *RunAllError) Error() string {
	return fmt.Sprintf("%d of %d saved searches failed", e.Failed, e.Total)
}

func savedID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one saved search id: %w", ErrUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid saved search id %q: %w", args[0], ErrUsage)
	}
	return id, nil
}
