package tui

import (
	"errors"
	"testing"

	"github.com/marketly/marketly/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSearchMachine_LatestRequestWins(t *testing.T) {
	var s searchMachine

	seqA := s.begin()
	seqB := s.begin()

	// B resolves first, then the slow A
	assert.True(t, s.resolve(SearchResultMsg{Seq: seqB, Response: &domain.SearchResponse{Query: "B"}}))
	assert.False(t, s.resolve(SearchResultMsg{Seq: seqA, Response: &domain.SearchResponse{Query: "A"}}))

	assert.False(t, s.Loading)
	assert.Equal(t, "B", s.Data.Query)
}

func TestSearchMachine_StaleResponseKeepsLoading(t *testing.T) {
	var s searchMachine

	seqA := s.begin()
	s.begin()

	assert.False(t, s.resolve(SearchResultMsg{Seq: seqA, Err: errors.New("late")}))
	assert.True(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestSearchMachine_ResultOrErrorNeverBoth(t *testing.T) {
	var s searchMachine

	seq := s.begin()
	s.resolve(SearchResultMsg{Seq: seq, Response: &domain.SearchResponse{Query: "ok"}})
	assert.NotNil(t, s.Data)
	assert.Empty(t, s.Err)

	seq = s.begin()
	s.resolve(SearchResultMsg{Seq: seq, Err: &domain.APIError{Status: 502, Body: "bad gateway"}})
	assert.Nil(t, s.Data)
	assert.Equal(t, "API error 502: bad gateway", s.Err)
}

func TestSavedMachine_LatestListWins(t *testing.T) {
	var s savedMachine

	older := s.begin()
	newer := s.begin()

	assert.True(t, s.resolve(SavedListMsg{Seq: newer, Saved: []domain.SavedSearch{{ID: 2}}}))
	assert.False(t, s.resolve(SavedListMsg{Seq: older, Saved: []domain.SavedSearch{{ID: 1}}}))

	assert.False(t, s.Loading)
	assert.Equal(t, int64(2), s.List[0].ID)
}

func TestSavedMachine_NilListBecomesEmpty(t *testing.T) {
	var s savedMachine
	seq := s.begin()
	s.resolve(SavedListMsg{Seq: seq})
	assert.NotNil(t, s.List)
	assert.Empty(t, s.List)
}

type blankError struct{}

func (blankError) Error() string { return "" }

func TestErrorText_Fallbacks(t *testing.T) {
	assert.Equal(t, "Unknown error", searchErrorText(blankError{}, false))
	assert.Equal(t, "Failed to run saved search", searchErrorText(blankError{}, true))
	assert.Equal(t, "Run saved search failed (404): missing",
		searchErrorText(&domain.APIError{Status: 404, Body: "missing"}, true))
	assert.Equal(t, "timeout", searchErrorText(errors.New("timeout"), false))

	var s savedMachine
	seq := s.begin()
	s.resolve(SavedListMsg{Seq: seq, Err: blankError{}})
	assert.Equal(t, "Failed to load saved searches", s.Err)

	s.fail(SavedMutatedMsg{Op: OpCreate, Err: blankError{}})
	assert.Equal(t, "Failed to save search", s.Err)

	s.fail(SavedMutatedMsg{Op: OpDelete, ID: 3, Err: blankError{}})
	assert.Equal(t, "Failed to delete saved search", s.Err)
}
