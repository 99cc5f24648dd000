package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/marketly/marketly/internal/domain"
)

const requestIDHeader = "X-Request-Id"

// TokenSource returns the current access token, or "" when signed out
type TokenSource func() string

// Client implements domain.MarketAPI over the backend's REST interface.
// No timeout and no retries are applied; callers cancel through ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource attaches "Authorization: Bearer <token>" when token() is non-empty
func WithTokenSource(token TokenSource) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a new backend API client
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchURL builds the search endpoint URL with exactly q, sources and limit,
// in that order. Sources is passed through verbatim.
func SearchURL(baseURL string, q domain.SearchQuery) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/search?q=")
	b.WriteString(url.QueryEscape(q.Query))
	b.WriteString("&sources=")
	b.WriteString(url.QueryEscape(q.Sources))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(q.Limit))
	return b.String()
}

// do performs one request and returns the body of a 2xx response.
// Non-2xx responses become *domain.APIError carrying the body text.
func (c *Client) do(ctx context.Context, method, reqURL, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		// Bypass any intermediary cache; the backend is the source of truth
		req.Header.Set("Cache-Control", "no-store")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logger.Debug("api request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api request error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(respBody),
			"request_id", requestID,
		)
		return nil, &domain.APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(respBody),
		}
	}

	return respBody, nil
}

func decode[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

// Search issues GET /search?q&sources&limit
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResponse, error) {
	body, err := c.do(ctx, http.MethodGet, SearchURL(c.baseURL, q), "/search", nil)
	if err != nil {
		return nil, err
	}
	resp, err := decode[domain.SearchResponse](body)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sources returns the backend's registered marketplace connectors
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/sources", "/sources", nil)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Sources []string `json:"sources"`
	}](body)
	if err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

// Health returns GET /health
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/health", "/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := decode[domain.HealthStatus](body)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSavedSearches returns GET /saved-searches
func (c *Client) ListSavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/saved-searches", "/saved-searches", nil)
	if err != nil {
		return nil, err
	}
	list, err := decode[[]domain.SavedSearch](body)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.SavedSearch{}
	}
	return list, nil
}

// CreateSavedSearch posts {query, sources}. The response body is ignored;
// callers re-fetch the list.
func (c *Client) CreateSavedSearch(ctx context.Context, in domain.SavedSearchInput) error {
	if in.Sources == nil {
		in.Sources = []string{}
	}
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/saved-searches", "/saved-searches", in)
	return err
}

// DeleteSavedSearch issues DELETE /saved-searches/{id}
func (c *Client) DeleteSavedSearch(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/saved-searches/%d", id)
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+path, path, nil)
	return err
}

// RunSavedSearch issues GET /saved-searches/{id}/run?limit
func (c *Client) RunSavedSearch(ctx context.Context, id int64, limit int) (*domain.SearchResponse, error) {
	path := fmt.Sprintf("/saved-searches/%d/run", id)
	reqURL := c.baseURL + path + "?limit=" + strconv.Itoa(limit)

	body, err := c.do(ctx, http.MethodGet, reqURL, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := decode[domain.SearchResponse](body)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
