package tui

import (
	"fmt"

	"github.com/marketly/marketly/internal/domain"
)

// searchMachine holds the search results slot. It is written by searches and
// by saved-search runs: running a saved search reports into this slot, not
// the saved-search slot, so the form and results always show what ran last.
//
// Every dispatch takes a new sequence number; a response whose number is not
// the latest is stale and dropped.
type searchMachine struct {
	Loading bool
	Err     string
	Data    *domain.SearchResponse

	seq uint64
}

// begin enters the searching state and returns the request's sequence number
func (s *searchMachine) begin() uint64 {
	s.seq++
	s.Loading = true
	s.Err = ""
	s.Data = nil
	return s.seq
}

// resolve applies msg if it answers the latest request. It reports whether
// the message was applied.
func (s *searchMachine) resolve(msg SearchResultMsg) bool {
	if msg.Seq != s.seq {
		return false
	}
	s.Loading = false
	if msg.Err != nil {
		s.Err = searchErrorText(msg.Err, msg.Run)
		s.Data = nil
		return true
	}
	s.Err = ""
	s.Data = msg.Response
	return true
}

// savedMachine holds the saved-search list with its own loading and error
// state, independent of searchMachine.
type savedMachine struct {
	Loading bool
	Err     string
	List    []domain.SavedSearch

	seq uint64
}

// begin starts a list fetch and returns its sequence number
func (s *savedMachine) begin() uint64 {
	s.seq++
	s.Loading = true
	s.Err = ""
	return s.seq
}

// resolve applies msg if it answers the latest list fetch. A failed fetch
// keeps the previous list.
func (s *savedMachine) resolve(msg SavedListMsg) bool {
	if msg.Seq != s.seq {
		return false
	}
	s.Loading = false
	if msg.Err != nil {
		s.Err = errorText(msg.Err, "Failed to load saved searches")
		return true
	}
	s.Err = ""
	s.List = msg.Saved
	if s.List == nil {
		s.List = []domain.SavedSearch{}
	}
	return true
}

// fail records a create or delete failure
func (s *savedMachine) fail(msg SavedMutatedMsg) {
	fallback := "Failed to save search"
	if msg.Op == OpDelete {
		fallback = "Failed to delete saved search"
	}
	s.Err = errorText(msg.Err, fallback)
}

// searchErrorText formats a search or run failure for display.
// Backend rejections embed the status code and body text.
func searchErrorText(err error, run bool) string {
	if apiErr, ok := domain.AsAPIError(err); ok {
		if run {
			return fmt.Sprintf("Run saved search failed (%d): %s", apiErr.Status, apiErr.Body)
		}
		return fmt.Sprintf("API error %d: %s", apiErr.Status, apiErr.Body)
	}
	if run {
		return errorText(err, "Failed to run saved search")
	}
	return errorText(err, "Unknown error")
}

// errorText returns err's message, or fallback when it has none.
// Saved-search API errors already read "<METHOD> <path> failed (<status>): <body>".
func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
