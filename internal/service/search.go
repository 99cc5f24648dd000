package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/marketly/marketly/internal/domain"
)

// SearchService runs marketplace searches against the backend
type SearchService struct {
	repo   domain.SearchRepository
	logger *slog.Logger
}

// NewSearchService creates a new search service
func NewSearchService(repo domain.SearchRepository, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		repo:   repo,
		logger: logger,
	}
}

// Search runs q. Blank queries are rejected without a request.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResponse, error) {
	if q.IsBlank() {
		return nil, domain.ErrBlankQuery
	}

	s.logger.Debug("searching", "query", q.Query, "sources", q.Sources, "limit", q.Limit)

	resp, err := s.repo.Search(ctx, q)
	if err != nil {
		s.logger.Warn("search failed", "query", q.Query, "error", err)
		return nil, err
	}

	s.logger.Debug("search complete", "query", q.Query, "count", resp.Count)
	return resp, nil
}

// Sources returns the backend's available marketplace sources
func (s *SearchService) Sources(ctx context.Context) ([]string, error) {
	return s.repo.Sources(ctx)
}

// Health returns the backend's health report
func (s *SearchService) Health(ctx context.Context) (*domain.HealthStatus, error) {
	return s.repo.Health(ctx)
}

// FilterListings narrows listings to those whose title fuzzy-matches term,
// best matches first. It is a display filter only; an empty term returns
// listings unchanged.
func FilterListings(listings []domain.Listing, term string) []domain.Listing {
	term = strings.TrimSpace(term)
	if term == "" {
		return listings
	}

	titles := make([]string, len(listings))
	for i, l := range listings {
		titles[i] = l.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(term, titles)
	sort.Stable(ranks)

	out := make([]domain.Listing, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, listings[r.OriginalIndex])
	}
	return out
}
