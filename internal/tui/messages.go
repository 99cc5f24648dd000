package tui

import (
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/session"
)

// Message types for the TUI

// SearchResultMsg carries the response to a search or a saved-search run.
// Seq is the search sequence number issued at dispatch.
type SearchResultMsg struct {
	Seq      uint64
	Response *domain.SearchResponse
	Err      error
	Run      bool // came from running a saved search
}

// SavedListMsg carries the response to a saved-search list fetch
type SavedListMsg struct {
	Seq   uint64
	Saved []domain.SavedSearch
	Err   error
}

// SavedMutationOp names a saved-search mutation
type SavedMutationOp int

const (
	OpCreate SavedMutationOp = iota
	OpDelete
)

// SavedMutatedMsg signals that a create or delete finished
type SavedMutatedMsg struct {
	Op  SavedMutationOp
	ID  int64 // set for OpDelete
	Err error
}

// BackendInfoMsg carries the backend's health and source list
type BackendInfoMsg struct {
	Health  *domain.HealthStatus
	Sources []string
	Err     error
}

// SessionChangedMsg carries a new session snapshot from the provider.
// Closed is set once the provider has shut down.
type SessionChangedMsg struct {
	State  session.State
	Closed bool
}

// AuthOp names an auth form action
type AuthOp int

const (
	AuthSignUp AuthOp = iota
	AuthSignIn
	AuthSignOut
)

// AuthResultMsg signals that an auth form action finished
type AuthResultMsg struct {
	Op  AuthOp
	Err error
}

// OpenedMsg signals that a link was handed to the browser
type OpenedMsg struct {
	URL string
	Err error
}
