package service

import (
	"context"
	"log/slog"

	"github.com/marketly/marketly/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultRunAllConcurrency = 4

// SavedSearchService manages saved searches. It never caches: the backend is
// the only source of truth, so callers re-list after every mutation.
type SavedSearchService struct {
	repo   domain.SavedSearchRepository
	logger *slog.Logger
}

// NewSavedSearchService creates a new saved search service
func NewSavedSearchService(repo domain.SavedSearchRepository, logger *slog.Logger) *SavedSearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SavedSearchService{
		repo:   repo,
		logger: logger,
	}
}

// List returns every saved search
func (s *SavedSearchService) List(ctx context.Context) ([]domain.SavedSearch, error) {
	list, err := s.repo.ListSavedSearches(ctx)
	if err != nil {
		s.logger.Warn("listing saved searches failed", "error", err)
		return nil, err
	}
	s.logger.Debug("listed saved searches", "count", len(list))
	return list, nil
}

// Create saves query with the sources parsed out of the comma-separated
// sources field.
func (s *SavedSearchService) Create(ctx context.Context, query, sourcesField string) error {
	in := domain.SavedSearchInput{
		Query:   query,
		Sources: domain.ParseSources(sourcesField),
	}
	if err := s.repo.CreateSavedSearch(ctx, in); err != nil {
		s.logger.Warn("saving search failed", "query", query, "error", err)
		return err
	}
	s.logger.Info("saved search", "query", query, "sources", in.Sources)
	return nil
}

// Delete removes saved search id
func (s *SavedSearchService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSavedSearch(ctx, id); err != nil {
		s.logger.Warn("deleting saved search failed", "id", id, "error", err)
		return err
	}
	s.logger.Info("deleted saved search", "id", id)
	return nil
}

// Run executes saved search id live with limit
func (s *SavedSearchService) Run(ctx context.Context, id int64, limit int) (*domain.SearchResponse, error) {
	resp, err := s.repo.RunSavedSearch(ctx, id, limit)
	if err != nil {
		s.logger.Warn("running saved search failed", "id", id, "error", err)
		return nil, err
	}
	return resp, nil
}

// RunResult is the outcome of one saved search in RunAll
type RunResult struct {
	Saved    domain.SavedSearch
	Response *domain.SearchResponse
	Err      error
}

// RunAll lists saved searches and runs each of them with at most
// concurrency requests in flight. Results keep list order; a failing run is
// reported in its RunResult and does not stop the others.
func (s *SavedSearchService) RunAll(ctx context.Context, limit, concurrency int) ([]RunResult, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = defaultRunAllConcurrency
	}

	results := make([]RunResult, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, saved := range list {
		i, saved := i, saved
		g.Go(func() error {
			resp, err := s.Run(gctx, saved.ID, limit)
			results[i] = RunResult{Saved: saved, Response: resp, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
