package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "—", formatPrice(nil))
	assert.Equal(t, "CAD 25", formatPrice(&domain.Money{Amount: 25, Currency: "CAD"}))
	assert.Equal(t, "USD 12.5", formatPrice(&domain.Money{Amount: 12.5, Currency: "USD"}))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "", formatScore(nil))
	assert.Equal(t, "0.87", formatScore(ptr(0.8666)))
	assert.Equal(t, "1.00", formatScore(ptr(1.0)))
}

func TestImageLine(t *testing.T) {
	assert.Equal(t, "No image", imageLine(domain.Listing{}))
	assert.Equal(t, "No image", imageLine(domain.Listing{ImageURLs: []string{""}}))
	assert.Equal(t, "Image: https://img/1.jpg", imageLine(domain.Listing{
		ImageURLs: []string{"https://img/1.jpg", "https://img/2.jpg"},
	}))
}

func TestView_ShowsCountAsReported(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	seq := m.search.begin()
	m, _ = update(m, SearchResultMsg{Seq: seq, Response: &domain.SearchResponse{
		Query:   "iphone",
		Sources: []string{"kijiji", "ebay"},
		Count:   99,
		Results: []domain.Listing{{
			Source:          "kijiji",
			SourceListingID: "1",
			Title:           "iPhone 13",
			URL:             "https://kijiji.example/1",
			Price:           &domain.Money{Amount: 500, Currency: "CAD"},
			Score:           ptr(0.5),
		}},
	}})

	view := m.View()
	assert.Contains(t, view, "Results (99)")
	assert.Contains(t, view, "Sources: kijiji, ebay")
	assert.Contains(t, view, "iPhone 13")
	assert.Contains(t, view, "CAD 500")
	assert.Contains(t, view, "score 0.50")
	assert.Contains(t, view, "No image")
}

func TestView_RequestPreviewAndControls(t *testing.T) {
	m, api, _ := newTestModel(t, nil)

	view := m.View()
	assert.Contains(t, view, "Request: "+api.URL()+"/search?q=iphone&sources=kijiji&limit=20")
	assert.Contains(t, view, "Refreshing...")
	assert.Contains(t, view, "Auth not configured")

	m = drive(t, m, m.Init())
	view = m.View()
	assert.Contains(t, view, "No saved searches yet.")
	assert.NotContains(t, view, "Refreshing...")

	m, _ = update(m, enterKey)
	assert.Contains(t, m.View(), "Searching...")
}

func TestView_SearchErrorShown(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.SourcesInput.SetValue("nowhere")
	m = press(t, m, enterKey)

	_, errMsg, _ := m.SearchState()
	require.NotEmpty(t, errMsg)
	assert.Contains(t, m.View(), "Unknown source: nowhere")
}

func TestView_ResultsScrollKeepsCursorVisible(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})

	results := make([]domain.Listing, 20)
	for i := range results {
		results[i] = domain.Listing{Source: "kijiji", SourceListingID: string(rune('a' + i)), Title: "item", URL: "https://x.example"}
	}
	seq := m.search.begin()
	m, _ = update(m, SearchResultMsg{Seq: seq, Response: &domain.SearchResponse{Count: 20, Results: results}})
	m.setFocus(FocusResults)

	m = press(t, m, runes("G"))
	assert.Equal(t, 19, m.resultCursor)

	offsets, _ := m.resultCardOffsets()
	assert.LessOrEqual(t, m.resultOffset, offsets[19])
	assert.Greater(t, m.resultOffset, 0)

	m = press(t, m, runes("g"))
	assert.Equal(t, 0, m.resultOffset)
}
