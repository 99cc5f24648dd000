package service

import (
	"context"
	"errors"
	"testing"

	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/log"
	"github.com/marketly/marketly/internal/marketapi"
	"github.com/marketly/marketly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchService(t *testing.T) (*SearchService, *testutil.FakeAPI) {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	client := marketapi.NewClient(api.URL(), log.NullLogger())
	return NewSearchService(client, log.NullLogger()), api
}

func TestSearch_BlankQueryMakesNoRequest(t *testing.T) {
	svc, api := newSearchService(t)

	_, err := svc.Search(context.Background(), domain.SearchQuery{Query: "   ", Sources: "kijiji", Limit: 20})
	assert.True(t, errors.Is(err, domain.ErrBlankQuery))
	assert.Empty(t, api.Requests())
}

func TestSearch_ReturnsResults(t *testing.T) {
	svc, _ := newSearchService(t)

	resp, err := svc.Search(context.Background(), domain.SearchQuery{Query: "iphone", Sources: "kijiji,ebay", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, "iphone", resp.Query)
	assert.Equal(t, []string{"kijiji", "ebay"}, resp.Sources)
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_BackendRejection(t *testing.T) {
	svc, _ := newSearchService(t)

	_, err := svc.Search(context.Background(), domain.SearchQuery{Query: "iphone", Sources: "craigslist", Limit: 20})
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Unknown source: craigslist")
}

func TestSearchService_SourcesAndHealth(t *testing.T) {
	svc, _ := newSearchService(t)

	sources, err := svc.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.KnownSources, sources)

	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestFilterListings(t *testing.T) {
	listings := []domain.Listing{
		{Title: "Road bike 54cm"},
		{Title: "iPhone 13 Pro"},
		{Title: "Mountain bike"},
	}

	assert.Equal(t, listings, FilterListings(listings, ""))
	assert.Equal(t, listings, FilterListings(listings, "  "))

	got := FilterListings(listings, "bike")
	require.Len(t, got, 2)
	for _, l := range got {
		assert.Contains(t, l.Title, "bike")
	}

	got = FilterListings(listings, "IPHONE")
	require.Len(t, got, 1)
	assert.Equal(t, "iPhone 13 Pro", got[0].Title)

	assert.Empty(t, FilterListings(listings, "xyz"))
}
