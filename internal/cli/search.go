package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/marketly/marketly/internal/domain"
)

func (a *App) runSearch(ctx context.Context, args []string) error {
	fs := a.flags("search")
	sources := fs.String("s", a.Defaults.Sources, "comma-separated sources")
	limit := fs.Int("n", a.Defaults.Limit, "maximum results")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	q := domain.SearchQuery{
		Query:   strings.Join(fs.Args(), " "),
		Sources: *sources,
		Limit:   *limit,
	}
	resp, err := a.Search.Search(ctx, q)
	if err != nil {
		return err
	}
	return writeResponse(a.Out, format, resp)
}

// writeResponse prints a search or saved-search run
func writeResponse(w io.Writer, format Format, resp *domain.SearchResponse) error {
	return write(w, format, resp, func(w io.Writer) error {
		fmt.Fprintf(w, "Results (%d)  Sources: %s\n", resp.Count, strings.Join(resp.Sources, ", "))
		if len(resp.Results) == 0 {
			_, err := fmt.Fprintln(w, "No listings.")
			return err
		}

		t := newTable("TITLE", "PRICE", "SOURCE", "SCORE", "URL")
		for _, l := range resp.Results {
			t.Row(l.Title, formatPrice(l.Price), l.Source, formatScore(l.Score), l.URL)
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}

func formatPrice(p *domain.Money) string {
	if p == nil {
		return "-"
	}
	return p.String()
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *score)
}
