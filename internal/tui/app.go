package tui

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/marketapi"
	"github.com/marketly/marketly/internal/service"
	"github.com/marketly/marketly/internal/session"
	"github.com/marketly/marketly/internal/tui/components"
	"github.com/marketly/marketly/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// Screen is the view currently shown
type Screen int

const (
	ScreenHome Screen = iota
	ScreenAuth
	ScreenHelp
)

// Focus is the home screen element receiving keys
type Focus int

const (
	FocusQuery Focus = iota
	FocusSources
	FocusLimit
	FocusResults
	FocusSaved
	focusCount
)

// IsForm reports whether f is one of the search form fields
func (f Focus) IsForm() bool {
	return f <= FocusLimit
}

// Opener opens a URL outside the terminal
type Opener interface {
	Open(url string) error
}

// Options holds the values the model starts with
type Options struct {
	BaseURL string
	Query   string
	Sources string
	Limit   int
	Logger  *slog.Logger
}

const (
	defaultWidth  = 100
	defaultHeight = 30
)

// Model is the main Bubble Tea model for the application
type Model struct {
	Screen Screen
	Focus  Focus
	Ready  bool

	// Services
	SearchSvc *service.SearchService
	SavedSvc  *service.SavedSearchService
	Auth      domain.IdentityProvider // nil when no identity service is configured
	Session   *session.Provider       // nil when no identity service is configured
	Opener    Opener

	baseURL string
	logger  *slog.Logger

	// Search form
	QueryInput   textinput.Model
	SourcesInput textinput.Model
	LimitInput   textinput.Model

	// State machines
	search searchMachine
	saved  savedMachine

	// Auth form
	EmailInput    textinput.Model
	PasswordInput textinput.Model
	authFocus     int
	AuthMsg       string
	AuthIsErr     bool

	// Session snapshot
	sessionState session.State

	// Backend info
	health     string
	sources    []string
	backendErr string

	// Lists
	resultCursor  int
	resultOffset  int
	savedCursor   int
	resultsFilter string
	savedFilter   string
	FilterModal   components.InputModal
	filterTarget  Focus

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// NewModel creates a new application model. The initial saved-search fetch
// is issued by Init.
func NewModel(
	searchSvc *service.SearchService,
	savedSvc *service.SavedSearchService,
	auth domain.IdentityProvider,
	sess *session.Provider,
	opener Opener,
	opts Options,
) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	query := newInput("e.g., iphone, macbook, snowboard", 200)
	query.SetValue(opts.Query)
	query.CursorEnd()
	sources := newInput("kijiji (later: kijiji,ebay)", 200)
	sources.SetValue(opts.Sources)
	sources.CursorEnd()
	limit := newInput("20", 3)
	limit.SetValue(strconv.Itoa(opts.Limit))
	limit.CursorEnd()

	email := newInput("email", 254)
	password := newInput("password", 128)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	m := Model{
		Screen:        ScreenHome,
		Focus:         FocusQuery,
		SearchSvc:     searchSvc,
		SavedSvc:      savedSvc,
		Auth:          auth,
		Session:       sess,
		Opener:        opener,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		logger:        logger,
		QueryInput:    query,
		SourcesInput:  sources,
		LimitInput:    limit,
		EmailInput:    email,
		PasswordInput: password,
		FilterModal:   components.NewInputModal(),
		Width:         defaultWidth,
		Height:        defaultHeight,
	}
	m.QueryInput.Focus()
	m.EmailInput.Focus()
	if sess != nil {
		m.sessionState = sess.State()
	}

	// The list fetch on first render
	m.saved.begin()
	return m
}

// Init loads the saved searches and backend info, and starts following the session
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		LoadSavedCmd(m.SavedSvc, m.saved.seq),
		LoadBackendInfoCmd(m.SearchSvc),
	}
	if m.Session != nil {
		cmds = append(cmds, ListenSessionCmd(m.Session.Changes()))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.ensureResultVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case SearchResultMsg:
		if !m.search.resolve(msg) {
			m.logger.Debug("dropping stale search response", "seq", msg.Seq, "latest", m.search.seq)
			return m, nil
		}
		if msg.Err == nil && msg.Run && msg.Response != nil {
			// Reflect what actually ran
			m.QueryInput.SetValue(msg.Response.Query)
			m.QueryInput.CursorEnd()
			m.SourcesInput.SetValue(msg.Response.SourcesField())
			m.SourcesInput.CursorEnd()
		}
		m.resultCursor = 0
		m.resultOffset = 0
		m.resultsFilter = ""
		return m, nil

	case SavedListMsg:
		if !m.saved.resolve(msg) {
			m.logger.Debug("dropping stale saved-search list", "seq", msg.Seq, "latest", m.saved.seq)
			return m, nil
		}
		m.clampSavedCursor()
		return m, nil

	case SavedMutatedMsg:
		if msg.Err != nil {
			m.saved.fail(msg)
			return m, nil
		}
		cmd := m.refreshSaved()
		return m, cmd

	case BackendInfoMsg:
		if msg.Err != nil {
			m.backendErr = errorText(msg.Err, "Backend unavailable")
			m.health = ""
			return m, nil
		}
		m.backendErr = ""
		if msg.Health != nil {
			m.health = msg.Health.Status
		}
		m.sources = msg.Sources
		return m, nil

	case SessionChangedMsg:
		if msg.Closed {
			return m, nil
		}
		m.sessionState = msg.State
		return m, ListenSessionCmd(m.Session.Changes())

	case AuthResultMsg:
		return m.handleAuthResult(msg)

	case OpenedMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
		} else {
			m.setStatus("Opened "+msg.URL, false)
		}
		return m, nil
	}

	return m, nil
}

// View renders the current screen
func (m Model) View() string {
	switch m.Screen {
	case ScreenAuth:
		return m.renderAuth()
	case ScreenHelp:
		return m.renderHelp()
	default:
		return m.renderHome()
	}
}

// CurrentQuery returns the search described by the form fields.
// An unparsable limit is sent as 0 and left for the backend to reject.
func (m Model) CurrentQuery() domain.SearchQuery {
	limit, err := strconv.Atoi(strings.TrimSpace(m.LimitInput.Value()))
	if err != nil {
		limit = 0
	}
	return domain.SearchQuery{
		Query:   m.QueryInput.Value(),
		Sources: m.SourcesInput.Value(),
		Limit:   limit,
	}
}

// RequestURL is the search URL the form would send
func (m Model) RequestURL() string {
	return marketapi.SearchURL(m.baseURL, m.CurrentQuery())
}

// DocsURL is the backend's API documentation page
func (m Model) DocsURL() string {
	return m.baseURL + "/docs"
}

// SearchState exposes the search slot
func (m Model) SearchState() (loading bool, errMsg string, data *domain.SearchResponse) {
	return m.search.Loading, m.search.Err, m.search.Data
}

// SavedState exposes the saved-search slot
func (m Model) SavedState() (loading bool, errMsg string, list []domain.SavedSearch) {
	return m.saved.Loading, m.saved.Err, m.saved.List
}

// CanSearch reports whether the search control is enabled
func (m Model) CanSearch() bool {
	return !m.search.Loading && !m.CurrentQuery().IsBlank()
}

// CanSave reports whether the save control is enabled
func (m Model) CanSave() bool {
	return !m.CurrentQuery().IsBlank()
}

// submitSearch starts a search from the form. Blank queries and submits
// while a search is running are ignored without touching any state.
func (m Model) submitSearch() (Model, tea.Cmd) {
	if !m.CanSearch() {
		return m, nil
	}
	q := m.CurrentQuery()
	seq := m.search.begin()
	return m, SearchCmd(m.SearchSvc, seq, q)
}

// runSaved runs saved search id with the form's limit into the search slot
func (m Model) runSaved(id int64) (Model, tea.Cmd) {
	seq := m.search.begin()
	return m, RunSavedCmd(m.SavedSvc, seq, id, m.CurrentQuery().Limit)
}

// saveSearch stores the current query and sources
func (m Model) saveSearch() (Model, tea.Cmd) {
	if !m.CanSave() {
		return m, nil
	}
	m.saved.Err = ""
	q := m.CurrentQuery()
	return m, CreateSavedCmd(m.SavedSvc, q.Query, q.Sources)
}

// deleteSaved removes saved search id
func (m Model) deleteSaved(id int64) (Model, tea.Cmd) {
	m.saved.Err = ""
	return m, DeleteSavedCmd(m.SavedSvc, id)
}

// refreshSaved re-fetches the saved-search list
func (m *Model) refreshSaved() tea.Cmd {
	seq := m.saved.begin()
	return LoadSavedCmd(m.SavedSvc, seq)
}

// visibleResults returns the results after the local title filter
func (m Model) visibleResults() []domain.Listing {
	if m.search.Data == nil {
		return nil
	}
	return service.FilterListings(m.search.Data.Results, m.resultsFilter)
}

// visibleSaved returns the saved searches after the local query filter
func (m Model) visibleSaved() []domain.SavedSearch {
	if m.savedFilter == "" {
		return m.saved.List
	}

	queries := make([]string, len(m.saved.List))
	for i, s := range m.saved.List {
		queries[i] = strings.ToLower(s.Query)
	}

	matches := fuzzy.Find(strings.ToLower(m.savedFilter), queries)
	out := make([]domain.SavedSearch, len(matches))
	for i, match := range matches {
		out[i] = m.saved.List[match.Index]
	}
	return out
}

func (m Model) selectedListing() (domain.Listing, bool) {
	results := m.visibleResults()
	if m.resultCursor < 0 || m.resultCursor >= len(results) {
		return domain.Listing{}, false
	}
	return results[m.resultCursor], true
}

func (m Model) selectedSaved() (domain.SavedSearch, bool) {
	list := m.visibleSaved()
	if m.savedCursor < 0 || m.savedCursor >= len(list) {
		return domain.SavedSearch{}, false
	}
	return list[m.savedCursor], true
}

func (m *Model) clampSavedCursor() {
	n := len(m.visibleSaved())
	if m.savedCursor >= n {
		m.savedCursor = n - 1
	}
	if m.savedCursor < 0 {
		m.savedCursor = 0
	}
}

func (m *Model) clampResultCursor() {
	n := len(m.visibleResults())
	if m.resultCursor >= n {
		m.resultCursor = n - 1
	}
	if m.resultCursor < 0 {
		m.resultCursor = 0
	}
	m.ensureResultVisible()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
}

// setFocus moves key focus and keeps the text cursors in step
func (m *Model) setFocus(f Focus) {
	m.Focus = f
	m.QueryInput.Blur()
	m.SourcesInput.Blur()
	m.LimitInput.Blur()
	switch f {
	case FocusQuery:
		m.QueryInput.Focus()
	case FocusSources:
		m.SourcesInput.Focus()
	case FocusLimit:
		m.LimitInput.Focus()
	}
}

func (m *Model) focusedInput() *textinput.Model {
	switch m.Focus {
	case FocusQuery:
		return &m.QueryInput
	case FocusSources:
		return &m.SourcesInput
	case FocusLimit:
		return &m.LimitInput
	}
	return nil
}
