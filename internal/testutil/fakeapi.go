// Package testutil hosts in-memory fakes of the marketplace backend and the
// identity service for package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marketly/marketly/internal/domain"
)

// KnownSources are the connectors the fake backend accepts
var KnownSources = []string{"ebay", "kijiji"}

// RecordedRequest is a request seen by a fake server
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type injectedFailure struct {
	status int
	body   string
}

// FakeAPI is an in-memory marketplace backend
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	saved    []domain.SavedSearch
	nextID   int64
	requests []RecordedRequest
	failures map[string]injectedFailure // "METHOD /path" -> failure
}

// NewFakeAPI starts a fake backend that is closed with the test
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		nextID:   1,
		failures: make(map[string]injectedFailure),
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Get("/health", f.handleHealth)
	r.Get("/sources", f.handleSources)
	r.Get("/search", f.handleSearch)
	r.Get("/saved-searches", f.handleListSaved)
	r.Post("/saved-searches", f.handleCreateSaved)
	r.Delete("/saved-searches/{id}", f.handleDeleteSaved)
	r.Get("/saved-searches/{id}/run", f.handleRunSaved)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake's base URL
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// FailNext makes the next request matching "METHOD /path" answer with status and body
func (f *FakeAPI) FailNext(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = injectedFailure{status: status, body: body}
}

// Seed stores a saved search directly and returns it with its assigned id
func (f *FakeAPI) Seed(query string, sources ...string) domain.SavedSearch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(query, sources)
}

// Saved returns a copy of the stored saved searches
func (f *FakeAPI) Saved() []domain.SavedSearch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SavedSearch(nil), f.saved...)
}

// Requests returns a copy of every request recorded so far
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request matching method and path
func (f *FakeAPI) LastRequest(method, path string) (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return f.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (f *FakeAPI) insertLocked(query string, sources []string) domain.SavedSearch {
	s := domain.SavedSearch{
		ID:        f.nextID,
		Query:     query,
		Sources:   append([]string{}, sources...),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(f.nextID) * time.Minute).Format(time.RFC3339),
	}
	f.nextID++
	f.saved = append(f.saved, s)
	return s
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			body = string(data)
			r.Body = io.NopCloser(strings.NewReader(body))
		}

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		failure, failing := f.failures[r.Method+" "+r.URL.Path]
		if failing {
			delete(f.failures, r.Method+" "+r.URL.Path)
		}
		f.mu.Unlock()

		if failing {
			w.WriteHeader(failure.status)
			_, _ = w.Write([]byte(failure.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "ok"})
}

func (f *FakeAPI) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sources": KnownSources})
}

func (f *FakeAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "q: field required")
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 50 {
		writeDetail(w, http.StatusUnprocessableEntity, "limit: must be between 1 and 50")
		return
	}
	sources := domain.ParseSources(r.URL.Query().Get("sources"))
	if len(sources) == 0 {
		writeDetail(w, http.StatusBadRequest, "No sources provided")
		return
	}
	for _, s := range sources {
		if !isKnownSource(s) {
			writeDetail(w, http.StatusBadRequest, "Unknown source: "+s)
			return
		}
	}
	writeJSON(w, http.StatusOK, FakeSearchResponse(q, sources, limit))
}

func (f *FakeAPI) handleListSaved(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	// Newest first, like the real backend
	out := make([]domain.SavedSearch, 0, len(f.saved))
	for i := len(f.saved) - 1; i >= 0; i-- {
		out = append(out, f.saved[i])
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleCreateSaved(w http.ResponseWriter, r *http.Request) {
	var in domain.SavedSearchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if in.Query == "" || len(in.Sources) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "query and sources are required")
		return
	}
	f.mu.Lock()
	s := f.insertLocked(in.Query, in.Sources)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, s)
}

func (f *FakeAPI) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.saved {
		if s.ID == id {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Saved search not found")
}

func (f *FakeAPI) handleRunSaved(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid limit")
			return
		}
	}

	f.mu.Lock()
	var found *domain.SavedSearch
	for i := range f.saved {
		if f.saved[i].ID == id {
			s := f.saved[i]
			found = &s
			break
		}
	}
	f.mu.Unlock()

	if found == nil {
		writeDetail(w, http.StatusNotFound, "Saved search not found")
		return
	}
	writeJSON(w, http.StatusOK, FakeSearchResponse(found.Query, found.Sources, limit))
}

// FakeSearchResponse fabricates a deterministic response: two listings per
// source, capped at limit.
func FakeSearchResponse(q string, sources []string, limit int) domain.SearchResponse {
	results := []domain.Listing{}
	for _, src := range sources {
		for i := 1; i <= 2 && len(results) < limit; i++ {
			score := 1.0 / float64(i)
			l := domain.Listing{
				Source:          src,
				SourceListingID: fmt.Sprintf("%s-%d", src, i),
				Title:           fmt.Sprintf("%s %s #%d", q, src, i),
				URL:             fmt.Sprintf("https://%s.example/listing/%d", src, i),
				Price:           &domain.Money{Amount: float64(100 * i), Currency: "CAD"},
				Location:        "Toronto",
				Score:           &score,
			}
			if i == 1 {
				l.ImageURLs = []string{fmt.Sprintf("https://%s.example/img/%d.jpg", src, i)}
			}
			results = append(results, l)
		}
	}
	return domain.SearchResponse{
		Query:   q,
		Sources: append([]string{}, sources...),
		Count:   len(results),
		Results: results,
	}
}

func isKnownSource(s string) bool {
	for _, k := range KnownSources {
		if k == s {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
