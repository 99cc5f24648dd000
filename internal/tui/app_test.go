package tui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/log"
	"github.com/marketly/marketly/internal/marketapi"
	"github.com/marketly/marketly/internal/service"
	"github.com/marketly/marketly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, url)
	return nil
}

func (o *fakeOpener) urls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func newTestModel(t *testing.T, auth domain.IdentityProvider) (Model, *testutil.FakeAPI, *fakeOpener) {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	client := marketapi.NewClient(api.URL(), log.NullLogger())
	opener := &fakeOpener{}

	m := NewModel(
		service.NewSearchService(client, log.NullLogger()),
		service.NewSavedSearchService(client, log.NullLogger()),
		auth,
		nil,
		opener,
		Options{
			BaseURL: api.URL(),
			Query:   "iphone",
			Sources: "kijiji",
			Limit:   20,
			Logger:  log.NullLogger(),
		},
	)
	return m, api, opener
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drive runs cmd and every command it leads to, feeding each message back
// into the model, until nothing is left.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		var next tea.Cmd
		m, next = update(m, msg)
		queue = append(queue, next)
	}
	return m
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	m, cmd := update(m, msg)
	return drive(t, m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	ctrlS    = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func countRequests(api *testutil.FakeAPI, method, path string) int {
	n := 0
	for _, r := range api.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func savedIDs(list []domain.SavedSearch) []int64 {
	ids := make([]int64, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func TestSearch_BlankQueryIsIgnored(t *testing.T) {
	for _, q := range []string{"", " ", "\t  "} {
		m, api, _ := newTestModel(t, nil)
		m.QueryInput.SetValue(q)

		m, cmd := update(m, enterKey)
		assert.Nil(t, cmd, "query %q", q)

		loading, errMsg, data := m.SearchState()
		assert.False(t, loading)
		assert.Empty(t, errMsg)
		assert.Nil(t, data)
		assert.Empty(t, api.Requests())
		assert.False(t, m.CanSearch())
		assert.False(t, m.CanSave())
	}
}

func TestSearch_Success(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m.SourcesInput.SetValue("kijiji,ebay")
	m.LimitInput.SetValue("3")

	m, cmd := update(m, enterKey)
	require.NotNil(t, cmd)

	loading, _, data := m.SearchState()
	assert.True(t, loading)
	assert.Nil(t, data)
	assert.False(t, m.CanSearch(), "submit disabled while searching")

	m = drive(t, m, cmd)

	loading, errMsg, data := m.SearchState()
	assert.False(t, loading)
	assert.Empty(t, errMsg)
	require.NotNil(t, data)
	assert.Equal(t, 3, data.Count)
	assert.Equal(t, []string{"kijiji", "ebay"}, data.Sources)

	req, ok := api.LastRequest("GET", "/search")
	require.True(t, ok)
	assert.Equal(t, "q=iphone&sources=kijiji%2Cebay&limit=3", req.Query)
	assert.Equal(t, "no-store", req.Header.Get("Cache-Control"))
	assert.Equal(t, m.RequestURL(), api.URL()+"/search?"+req.Query)
}

func TestSearch_SubmitIgnoredWhileSearching(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	m, first := update(m, enterKey)
	require.NotNil(t, first)

	m, second := update(m, enterKey)
	assert.Nil(t, second)
}

func TestSearch_NewSearchClearsPreviousOutcome(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m = press(t, m, enterKey)
	_, _, data := m.SearchState()
	require.NotNil(t, data)

	m, cmd := update(m, enterKey)
	require.NotNil(t, cmd)
	loading, errMsg, data := m.SearchState()
	assert.True(t, loading)
	assert.Empty(t, errMsg)
	assert.Nil(t, data)

	// And a failure clears the previous result too
	m = drive(t, m, cmd)
	m.SourcesInput.SetValue("craigslist")
	m = press(t, m, enterKey)
	_, errMsg, data = m.SearchState()
	assert.NotEmpty(t, errMsg)
	assert.Nil(t, data)
}

func TestSearch_ErrorEmbedsStatusAndBody(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.SourcesInput.SetValue("craigslist")

	m = press(t, m, enterKey)

	_, errMsg, data := m.SearchState()
	assert.Nil(t, data)
	assert.True(t, strings.HasPrefix(errMsg, "API error 400: "), errMsg)
	assert.Contains(t, errMsg, "Unknown source: craigslist")
}

func TestSearch_UnparsableLimitIsSentAsZero(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m.LimitInput.SetValue("ab")

	m = press(t, m, enterKey)

	req, ok := api.LastRequest("GET", "/search")
	require.True(t, ok)
	assert.Equal(t, "q=iphone&sources=kijiji&limit=0", req.Query)

	_, errMsg, _ := m.SearchState()
	assert.True(t, strings.HasPrefix(errMsg, "API error 422: "), errMsg)
}

func TestSearch_TransportFailure(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Server.Close()

	m = press(t, m, enterKey)

	_, errMsg, _ := m.SearchState()
	assert.Contains(t, errMsg, domain.ErrServerOffline.Error())
}

func TestSearch_StaleResponseIsDropped(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji", "ebay")
	m = drive(t, m, m.Init())

	// A: a search that will resolve last
	m, cmdA := update(m, enterKey)
	require.NotNil(t, cmdA)

	// B: a saved-search run issued while A is in flight
	m.setFocus(FocusSaved)
	m, cmdB := update(m, enterKey)
	require.NotNil(t, cmdB)

	m, _ = update(m, cmdB())
	m, _ = update(m, cmdA())

	loading, errMsg, data := m.SearchState()
	assert.False(t, loading)
	assert.Empty(t, errMsg)
	require.NotNil(t, data)
	assert.Equal(t, "bike", data.Query)
	assert.Equal(t, "bike", m.QueryInput.Value())
}

func TestRunSaved_OverwritesFormAndResults(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	for i := 0; i < 6; i++ {
		api.Seed("filler", "kijiji")
	}
	seven := api.Seed("bike", "kijiji", "ebay")
	require.Equal(t, int64(7), seven.ID)

	m = drive(t, m, m.Init())
	m.LimitInput.SetValue("10")
	m.setFocus(FocusSaved)

	// Newest first, so id 7 is selected
	s, ok := m.selectedSaved()
	require.True(t, ok)
	require.Equal(t, int64(7), s.ID)

	m = press(t, m, enterKey)

	assert.Equal(t, "bike", m.QueryInput.Value())
	assert.Equal(t, "kijiji,ebay", m.SourcesInput.Value())

	_, errMsg, data := m.SearchState()
	assert.Empty(t, errMsg)
	require.NotNil(t, data)
	assert.Equal(t, "bike", data.Query)

	req, ok := api.LastRequest("GET", "/saved-searches/7/run")
	require.True(t, ok)
	assert.Equal(t, "limit=10", req.Query)
}

func TestRunSaved_FailureLandsInSearchSlot(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")
	m = drive(t, m, m.Init())
	m = press(t, m, enterKey) // a previous result

	api.FailNext("GET", "/saved-searches/1/run", 500, "boom")
	m.setFocus(FocusSaved)
	m = press(t, m, enterKey)

	_, errMsg, data := m.SearchState()
	assert.Equal(t, "Run saved search failed (500): boom", errMsg)
	assert.Nil(t, data)

	_, savedErr, list := m.SavedState()
	assert.Empty(t, savedErr)
	assert.Len(t, list, 1)
	assert.Equal(t, "iphone", m.QueryInput.Value(), "form untouched on failure")
}

func TestSaved_InitialLoad(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")

	loading, _, _ := m.SavedState()
	assert.True(t, loading, "list fetch starts with the view")

	m = drive(t, m, m.Init())

	loading, errMsg, list := m.SavedState()
	assert.False(t, loading)
	assert.Empty(t, errMsg)
	require.Len(t, list, 1)
	assert.Equal(t, "bike", list[0].Query)
}

func TestSaved_ListIsIdempotent(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")
	api.Seed("lamp", "ebay")
	m = drive(t, m, m.Init())
	_, _, first := m.SavedState()

	m.setFocus(FocusSaved)
	m = press(t, m, runes("r"))
	_, _, second := m.SavedState()

	assert.Equal(t, first, second)
	assert.Equal(t, 2, countRequests(api, "GET", "/saved-searches"))
}

func TestSaved_RefreshDisabledWhileLoading(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.setFocus(FocusSaved)

	_, cmd := update(m, runes("r"))
	assert.Nil(t, cmd)
}

func TestSaved_CreateThenList(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m = drive(t, m, m.Init())

	m = press(t, m, ctrlS)

	_, errMsg, list := m.SavedState()
	assert.Empty(t, errMsg)
	require.Len(t, list, 1)
	assert.Equal(t, "iphone", list[0].Query)
	assert.Equal(t, []string{"kijiji"}, list[0].Sources)
	assert.NotZero(t, list[0].ID)

	req, ok := api.LastRequest("POST", "/saved-searches")
	require.True(t, ok)
	assert.JSONEq(t, `{"query":"iphone","sources":["kijiji"]}`, req.Body)
}

func TestSaved_CreateSplitsSourcesField(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m = drive(t, m, m.Init())
	m.SourcesInput.SetValue(" kijiji, ,ebay ")

	m = press(t, m, ctrlS)

	req, ok := api.LastRequest("POST", "/saved-searches")
	require.True(t, ok)
	assert.JSONEq(t, `{"query":"iphone","sources":["kijiji","ebay"]}`, req.Body)
}

func TestSaved_CreateDisabledForBlankQuery(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m.QueryInput.SetValue("  ")

	_, cmd := update(m, ctrlS)
	assert.Nil(t, cmd)
	assert.Empty(t, api.Requests())
}

func TestSaved_CreateFailureDoesNotRefresh(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	m = drive(t, m, m.Init())
	before := countRequests(api, "GET", "/saved-searches")

	api.FailNext("POST", "/saved-searches", 500, "nope")
	m = press(t, m, ctrlS)

	_, errMsg, _ := m.SavedState()
	assert.Equal(t, "POST /saved-searches failed (500): nope", errMsg)
	assert.Equal(t, before, countRequests(api, "GET", "/saved-searches"))

	_, searchErr, _ := m.SearchState()
	assert.Empty(t, searchErr, "saved-search errors stay out of the search slot")
}

func TestSaved_DeleteThenList(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")
	lamp := api.Seed("lamp", "ebay")
	m = drive(t, m, m.Init())

	m.setFocus(FocusSaved)
	s, ok := m.selectedSaved()
	require.True(t, ok)
	require.Equal(t, lamp.ID, s.ID)

	m = press(t, m, runes("x"))

	_, errMsg, list := m.SavedState()
	assert.Empty(t, errMsg)
	assert.NotContains(t, savedIDs(list), lamp.ID)
	assert.Len(t, list, 1)
}

func TestSaved_DeleteFailureEmbedsID(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")
	m = drive(t, m, m.Init())

	api.FailNext("DELETE", "/saved-searches/1", 404, "gone")
	m.setFocus(FocusSaved)
	m = press(t, m, runes("x"))

	_, errMsg, list := m.SavedState()
	assert.Equal(t, "DELETE /saved-searches/1 failed (404): gone", errMsg)
	assert.Len(t, list, 1, "list untouched")
}

func TestSaved_ListFailureKeepsPreviousList(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("bike", "kijiji")
	m = drive(t, m, m.Init())

	api.FailNext("GET", "/saved-searches", 503, "down")
	m.setFocus(FocusSaved)
	m = press(t, m, runes("r"))

	loading, errMsg, list := m.SavedState()
	assert.False(t, loading)
	assert.Equal(t, "GET /saved-searches failed (503): down", errMsg)
	assert.Len(t, list, 1)
}

func TestSaved_RefreshDoesNotDisturbSearch(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m = drive(t, m, m.Init())
	m = press(t, m, enterKey)
	_, _, before := m.SearchState()
	require.NotNil(t, before)

	m.setFocus(FocusSaved)
	m = press(t, m, runes("r"))

	_, _, after := m.SearchState()
	assert.Same(t, before, after)
}

func TestOpenListingAndDocs(t *testing.T) {
	m, api, opener := newTestModel(t, nil)
	m = press(t, m, enterKey)

	m.setFocus(FocusResults)
	m = press(t, m, runes("j"))
	m = press(t, m, runes("o"))
	m = press(t, m, runes("d"))

	assert.Equal(t, []string{
		"https://kijiji.example/listing/2",
		api.URL() + "/docs",
	}, opener.urls())
	assert.Equal(t, "Opened "+api.URL()+"/docs", m.StatusMsg)
}

func TestFilterResults(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.SourcesInput.SetValue("kijiji,ebay")
	m = press(t, m, enterKey)
	m.setFocus(FocusResults)

	m = press(t, m, runes("/"))
	require.True(t, m.FilterModal.IsVisible())
	m = press(t, m, runes("ebay"))
	m = press(t, m, enterKey)
	assert.False(t, m.FilterModal.IsVisible())

	visible := m.visibleResults()
	require.Len(t, visible, 2)
	for _, l := range visible {
		assert.Equal(t, "ebay", l.Source)
	}

	// Display only: the search slot is untouched
	_, _, data := m.SearchState()
	assert.Len(t, data.Results, 4)
	assert.Equal(t, 4, data.Count)

	m = press(t, m, escKey)
	assert.Len(t, m.visibleResults(), 4)
}

func TestFilterSaved(t *testing.T) {
	m, api, _ := newTestModel(t, nil)
	api.Seed("road bike", "kijiji")
	api.Seed("desk lamp", "ebay")
	m = drive(t, m, m.Init())
	m.setFocus(FocusSaved)

	m = press(t, m, runes("/"))
	m = press(t, m, runes("lamp"))

	visible := m.visibleSaved()
	require.Len(t, visible, 1)
	assert.Equal(t, "desk lamp", visible[0].Query)

	// esc cancels the prompt and clears the filter
	m = press(t, m, escKey)
	assert.Len(t, m.visibleSaved(), 2)
}

func TestFocusCyclesThroughFormAndPanes(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	tab := tea.KeyMsg{Type: tea.KeyTab}

	want := []Focus{FocusSources, FocusLimit, FocusResults, FocusSaved, FocusQuery}
	for _, f := range want {
		m = press(t, m, tab)
		assert.Equal(t, f, m.Focus)
	}

	// Typing in the form goes to the focused field
	m = press(t, m, runes("s"))
	assert.Equal(t, "iphones", m.QueryInput.Value())
}
