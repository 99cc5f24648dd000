package domain

import (
	"strconv"
	"strings"
	"time"
)

// Money is a display-only price. Amount is shown exactly as the backend sent
// it; no currency arithmetic happens on the client.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// String renders "<currency> <amount>", e.g. "CAD 25" or "CAD 12.5".
func (m Money) String() string {
	return m.Currency + " " + strconv.FormatFloat(m.Amount, 'f', -1, 64)
}

// Listing is a single marketplace result
type Listing struct {
	Source          string   `json:"source"`
	SourceListingID string   `json:"source_listing_id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Price           *Money   `json:"price,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	Location        string   `json:"location,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	Snippet         string   `json:"snippet,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	ScoreReason     string   `json:"score_reason,omitempty"`
}

// Key returns the display identity "source:source_listing_id".
// Uniqueness within a response is assumed, not enforced.
func (l Listing) Key() string {
	return l.Source + ":" + l.SourceListingID
}

// FirstImage returns the first image URL and whether one exists
func (l Listing) FirstImage() (string, bool) {
	if len(l.ImageURLs) == 0 || l.ImageURLs[0] == "" {
		return "", false
	}
	return l.ImageURLs[0], true
}

// SearchResponse is the backend's answer to a search or a saved-search run.
// Count is authoritative for display and is never recomputed from Results.
type SearchResponse struct {
	Query   string    `json:"query"`
	Sources []string  `json:"sources"`
	Count   int       `json:"count"`
	Results []Listing `json:"results"`
}

// SourcesField joins the echoed sources back into the form's comma format
func (r SearchResponse) SourcesField() string {
	return strings.Join(r.Sources, ",")
}

// SavedSearch is a server-owned saved query. ID is always assigned by the API.
type SavedSearch struct {
	ID        int64    `json:"id"`
	Query     string   `json:"query"`
	Sources   []string `json:"sources"`
	CreatedAt string   `json:"created_at"`
}

// SavedSearchInput is the creation payload for POST /saved-searches
type SavedSearchInput struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
}

// SearchQuery holds the raw search form values as they are sent on the wire.
// Sources stays the comma-joined string the user typed; it is never re-split.
type SearchQuery struct {
	Query   string
	Sources string
	Limit   int
}

// IsBlank reports whether the query is empty or whitespace-only
func (q SearchQuery) IsBlank() bool {
	return strings.TrimSpace(q.Query) == ""
}

// ParseSources splits a comma-separated sources field into trimmed,
// non-empty tokens. "kijiji, ,ebay" yields ["kijiji", "ebay"].
func ParseSources(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// User is the identity provider's account record
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is an authenticated identity session
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuthEvent names a session change notification
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status string `json:"status"`
}
