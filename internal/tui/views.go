package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/tui/styles"
)

const (
	noImageText   = "No image"
	noPriceText   = "—"
	minPaneHeight = 3
)

// formatPrice renders "<currency> <amount>", or a dash when there is no price
func formatPrice(p *domain.Money) string {
	if p == nil {
		return noPriceText
	}
	return p.String()
}

// formatScore renders a score fixed to two decimals, or "" when absent
func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *score)
}

// imageLine names the listing's first image or the placeholder
func imageLine(l domain.Listing) string {
	if img, ok := l.FirstImage(); ok {
		return "Image: " + img
	}
	return noImageText
}

// listingLines renders one result card as lines no wider than width
func listingLines(l domain.Listing, selected bool, width int) []string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}

	marker := "  "
	titleStyle := styles.TitleStyle
	if selected {
		marker = styles.AccentStyle.Render("▌ ")
		titleStyle = titleStyle.Foreground(styles.Accent)
	}

	priceLine := styles.PriceStyle.Render(formatPrice(l.Price))
	if l.Location != "" {
		priceLine += styles.DimStyle.Render(" • " + l.Location)
	}
	if l.Condition != "" {
		priceLine += styles.DimStyle.Render(" • " + l.Condition)
	}

	meta := l.Source
	if s := formatScore(l.Score); s != "" {
		meta += " • score " + s
		if l.ScoreReason != "" {
			meta += " (" + l.ScoreReason + ")"
		}
	}

	lines := []string{
		marker + titleStyle.Render(styles.Truncate(l.Title, inner)),
		marker + priceLine,
		marker + styles.DimStyle.Render(styles.Truncate(meta, inner)),
		marker + styles.DimStyle.Render(styles.Truncate(imageLine(l), inner)),
	}
	if l.Snippet != "" {
		lines = append(lines, marker+styles.SubtitleStyle.Render(styles.Truncate(l.Snippet, inner)))
	}
	lines = append(lines, marker+styles.LinkStyle.Render(styles.Truncate(l.URL, inner)), "")
	return lines
}

func (m Model) paneWidths() (left, right int) {
	left = m.Width * 2 / 3
	return left, m.Width - left
}

// resultsHeight is the number of lines available to result cards
func (m Model) resultsHeight() int {
	h := m.Height - lipgloss.Height(m.renderTop()) - 1 - 2 // footer, results header
	if h < minPaneHeight {
		return minPaneHeight
	}
	return h
}

// resultCardOffsets returns the first line of each visible card and the total line count
func (m Model) resultCardOffsets() ([]int, int) {
	left, _ := m.paneWidths()
	results := m.visibleResults()
	offsets := make([]int, len(results))
	line := 0
	for i, l := range results {
		offsets[i] = line
		line += len(listingLines(l, false, left))
	}
	return offsets, line
}

// ensureResultVisible scrolls the results pane so the cursor card is shown
func (m *Model) ensureResultVisible() {
	offsets, total := m.resultCardOffsets()
	if len(offsets) == 0 {
		m.resultOffset = 0
		return
	}

	if m.resultCursor >= len(offsets) {
		m.resultCursor = len(offsets) - 1
	}

	height := m.resultsHeight()
	top := offsets[m.resultCursor]
	bottom := total
	if m.resultCursor+1 < len(offsets) {
		bottom = offsets[m.resultCursor+1]
	}

	if top < m.resultOffset {
		m.resultOffset = top
	} else if bottom > m.resultOffset+height {
		m.resultOffset = bottom - height
		if m.resultOffset > top {
			m.resultOffset = top
		}
	}
}

func (m Model) sessionBadge() string {
	switch {
	case m.Session == nil:
		return styles.DimStyle.Render("Auth not configured")
	case m.sessionState.Loading:
		return styles.DimStyle.Render("Checking session...")
	case m.sessionState.SignedIn():
		who := "unknown user"
		if m.sessionState.User != nil && m.sessionState.User.Email != "" {
			who = m.sessionState.User.Email
		}
		return styles.SuccessStyle.Render("Signed in as " + who)
	default:
		return styles.DimStyle.Render("Not signed in (a to sign in)")
	}
}

func (m Model) healthBadge() string {
	switch {
	case m.backendErr != "":
		return styles.ErrorStyle.Render("offline")
	case m.health == "":
		return styles.DimBadgeStyle.Render("...")
	case m.health == "ok":
		return styles.BadgeStyle.Render(m.health)
	default:
		return styles.DimBadgeStyle.Render(m.health)
	}
}

func (m Model) renderField(label string, f Focus, input string, hint string) string {
	labelStyle := styles.LabelStyle
	if m.Focus == f {
		labelStyle = styles.FocusedLabelStyle
	}
	line := labelStyle.Render(styles.Pad(label, 9)) + input
	if hint != "" {
		line += "  " + styles.DimStyle.Render(hint)
	}
	return line
}

// renderTop renders everything above the results and saved-search panes
func (m Model) renderTop() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Marketly"))
	b.WriteString("  ")
	b.WriteString(styles.DimStyle.Render("Backend: " + m.baseURL))
	b.WriteString(" ")
	b.WriteString(m.healthBadge())
	b.WriteString("  ")
	b.WriteString(m.sessionBadge())
	b.WriteString("\n")
	if len(m.sources) > 0 {
		b.WriteString(styles.DimStyle.Render("Available sources: " + strings.Join(m.sources, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderField("Search", FocusQuery, m.QueryInput.View(), ""))
	b.WriteString("\n")
	b.WriteString(m.renderField("Sources", FocusSources, m.SourcesInput.View(), "Comma-separated"))
	b.WriteString("\n")
	b.WriteString(m.renderField("Limit", FocusLimit, m.LimitInput.View(), "1-50"))
	b.WriteString("\n\n")

	searchLabel := "Search"
	if m.search.Loading {
		searchLabel = "Searching..."
	}
	b.WriteString(styles.Button(searchLabel, m.CanSearch()))
	b.WriteString(" ")
	b.WriteString(styles.Button("Save search", m.CanSave()))
	b.WriteString("  ")
	b.WriteString(styles.LinkStyle.Render("Open API docs"))
	b.WriteString(styles.DimStyle.Render(" (d)"))
	b.WriteString("\n")

	b.WriteString(lipgloss.NewStyle().Width(m.Width).Render(
		styles.DimStyle.Render("Request: " + m.RequestURL()),
	))

	if m.search.Err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorBoxStyle.Width(m.Width - 2).Render(m.search.Err))
	}
	if m.FilterModal.IsVisible() {
		b.WriteString("\n")
		b.WriteString(m.FilterModal.View(m.Width))
	}
	return b.String()
}

func (m Model) renderResults(width, height int) string {
	var b strings.Builder

	data := m.search.Data
	if data == nil {
		title := "Results"
		if m.search.Loading {
			title = "Searching..."
		}
		b.WriteString(styles.TitleStyle.Render(title))
		b.WriteString("\n\n")
		if !m.search.Loading && m.search.Err == "" {
			b.WriteString(styles.DimStyle.Render("Press enter in the search form to search."))
		}
		return lipgloss.NewStyle().Width(width).Render(b.String())
	}

	header := styles.TitleStyle.Render(fmt.Sprintf("Results (%d)", data.Count))
	header += "  " + styles.DimStyle.Render("Sources: "+strings.Join(data.Sources, ", "))
	if m.resultsFilter != "" {
		header += "  " + styles.AccentStyle.Render("/"+m.resultsFilter)
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	results := m.visibleResults()
	if len(results) == 0 {
		b.WriteString(styles.DimStyle.Render("No listings."))
		return lipgloss.NewStyle().Width(width).Render(b.String())
	}

	var lines []string
	for i, l := range results {
		selected := m.Focus == FocusResults && i == m.resultCursor
		lines = append(lines, listingLines(l, selected, width)...)
	}

	vp := viewport.New(width, height)
	vp.SetContent(strings.Join(lines, "\n"))
	vp.SetYOffset(m.resultOffset)
	b.WriteString(vp.View())
	return b.String()
}

func (m Model) renderSaved(width, height int) string {
	var b strings.Builder

	refresh := "Refresh"
	if m.saved.Loading {
		refresh = "Refreshing..."
	}
	title := styles.TitleStyle.Render("Saved searches")
	if m.savedFilter != "" {
		title += " " + styles.AccentStyle.Render("/"+m.savedFilter)
	}
	b.WriteString(title + "  " + styles.Button(refresh, !m.saved.Loading))
	b.WriteString("\n\n")

	if m.saved.Err != "" {
		b.WriteString(styles.ErrorBoxStyle.Width(width - 4).Render(m.saved.Err))
		b.WriteString("\n")
	}

	list := m.visibleSaved()
	if len(list) == 0 {
		b.WriteString(styles.DimStyle.Render("No saved searches yet."))
		return styles.PanelStyle.Width(width).Render(b.String())
	}

	// Two lines per entry; keep the cursor in view
	perPage := (height - lipgloss.Height(b.String())) / 2
	if perPage < 1 {
		perPage = 1
	}
	start := 0
	if m.savedCursor >= perPage {
		start = m.savedCursor - perPage + 1
	}
	end := start + perPage
	if end > len(list) {
		end = len(list)
	}

	inner := width - 4
	for i := start; i < end; i++ {
		s := list[i]
		style := styles.NormalItemStyle
		if m.Focus == FocusSaved && i == m.savedCursor {
			style = styles.SelectedItemStyle
		}
		b.WriteString(style.Render(styles.Pad(styles.Truncate(s.Query, inner), inner)))
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render("  " + styles.Truncate(fmt.Sprintf("%s • id %d", strings.Join(s.Sources, ", "), s.ID), inner)))
		b.WriteString("\n")
	}
	return styles.PanelStyle.Width(width).Render(b.String())
}

func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		style := styles.SuccessStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		return style.Render(styles.Truncate(m.StatusMsg, m.Width))
	}

	var hints []key.Binding
	switch {
	case m.Focus.IsForm():
		hints = []key.Binding{Keys.Submit, Keys.NextPane, Keys.Escape}
	case m.Focus == FocusResults:
		hints = []key.Binding{Keys.Open, Keys.Filter, Keys.Save, Keys.Docs, Keys.Help, Keys.Quit}
	default:
		hints = []key.Binding{Keys.Run, Keys.Delete, Keys.Refresh, Keys.Filter, Keys.Help, Keys.Quit}
	}
	return renderHints(hints)
}

func renderHints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderHome() string {
	top := m.renderTop()
	height := m.resultsHeight()
	left, right := m.paneWidths()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderResults(left, height),
		m.renderSaved(right, height+2),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, "", body, m.renderFooter())
}

func (m Model) renderAuth() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Login"))
	b.WriteString("  ")
	b.WriteString(m.sessionBadge())
	b.WriteString("\n\n")

	emailLabel, passLabel := styles.LabelStyle, styles.LabelStyle
	if m.authFocus == 0 {
		emailLabel = styles.FocusedLabelStyle
	} else {
		passLabel = styles.FocusedLabelStyle
	}
	b.WriteString(emailLabel.Render(styles.Pad("Email", 10)) + m.EmailInput.View())
	b.WriteString("\n")
	b.WriteString(passLabel.Render(styles.Pad("Password", 10)) + m.PasswordInput.View())
	b.WriteString("\n\n")

	b.WriteString(renderHints([]key.Binding{Keys.SignIn, Keys.SignUp, Keys.SignOut, Keys.Escape}))
	b.WriteString("\n\n")

	if m.AuthMsg != "" {
		style := styles.SuccessStyle
		if m.AuthIsErr {
			style = styles.ErrorStyle
		}
		b.WriteString(style.Render(m.AuthMsg))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) renderHelp() string {
	sections := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Search form", []key.Binding{Keys.Submit, Keys.Save, Keys.NextPane, Keys.PrevPane, Keys.Escape}},
		{"Results", []key.Binding{Keys.Up, Keys.Down, Keys.Home, Keys.End, Keys.Open, Keys.Filter}},
		{"Saved searches", []key.Binding{Keys.Run, Keys.Delete, Keys.Refresh, Keys.Filter}},
		{"General", []key.Binding{Keys.Form, Keys.Docs, Keys.Account, Keys.Logout, Keys.Help, Keys.Quit}},
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(styles.AccentStyle.Render(s.title))
		b.WriteString("\n")
		for _, k := range s.bindings {
			h := k.Help()
			b.WriteString("  " + styles.HelpKeyStyle.Render(styles.Pad(h.Key, 12)) + styles.HelpDescStyle.Render(h.Desc))
			b.WriteString("\n")
		}
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
