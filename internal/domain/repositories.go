package domain

import (
	"context"
)

// SearchRepository runs marketplace searches against the backend
type SearchRepository interface {
	// Search issues GET /search?q&sources&limit
	Search(ctx context.Context, q SearchQuery) (*SearchResponse, error)

	// Sources returns the backend's known source names
	Sources(ctx context.Context) ([]string, error)

	// Health returns the backend health report
	Health(ctx context.Context) (*HealthStatus, error)
}

// SavedSearchRepository manages saved searches on the backend.
// The backend is the only source of truth; implementations never cache.
type SavedSearchRepository interface {
	ListSavedSearches(ctx context.Context) ([]SavedSearch, error)
	CreateSavedSearch(ctx context.Context, in SavedSearchInput) error
	DeleteSavedSearch(ctx context.Context, id int64) error

	// RunSavedSearch executes saved search id live with the given limit
	RunSavedSearch(ctx context.Context, id int64, limit int) (*SearchResponse, error)
}

// MarketAPI is the full backend surface
type MarketAPI interface {
	SearchRepository
	SavedSearchRepository
}
