package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.ForceQuit) {
		return m, tea.Quit
	}

	// Route to the filter prompt if open
	if m.FilterModal.IsVisible() {
		return m.handleFilterKey(msg)
	}

	switch m.Screen {
	case ScreenHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.Screen = ScreenHome
		}
		return m, nil

	case ScreenAuth:
		return m.handleAuthKey(msg)
	}

	if m.Focus.IsForm() {
		return m.handleFormKey(msg)
	}
	return m.handlePaneKey(msg)
}

// handleFormKey handles keys while a search form field has focus.
// Everything that is not a form action is typed into the field.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Submit):
		return m.submitSearch()

	case msg.String() == "ctrl+s":
		return m.saveSearch()

	case key.Matches(msg, Keys.NextPane):
		m.setFocus((m.Focus + 1) % focusCount)
		return m, nil

	case key.Matches(msg, Keys.PrevPane):
		m.setFocus((m.Focus + focusCount - 1) % focusCount)
		return m, nil

	case key.Matches(msg, Keys.Escape):
		m.setFocus(FocusResults)
		return m, nil
	}

	input := m.focusedInput()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

// handlePaneKey handles keys while the results or saved-search pane has focus
func (m Model) handlePaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Pane-specific actions first; enter means different things in each
	if m.Focus == FocusResults {
		if handled, cmd := m.handleResultsKey(msg); handled {
			return m, cmd
		}
	} else {
		if handled, model, cmd := m.handleSavedKey(msg); handled {
			return model, cmd
		}
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.Screen = ScreenHelp
		return m, nil

	case key.Matches(msg, Keys.NextPane):
		m.setFocus((m.Focus + 1) % focusCount)
		return m, nil

	case key.Matches(msg, Keys.PrevPane):
		m.setFocus((m.Focus + focusCount - 1) % focusCount)
		return m, nil

	case key.Matches(msg, Keys.Form):
		m.setFocus(FocusQuery)
		return m, nil

	case key.Matches(msg, Keys.Escape):
		// Clear the active filter
		if m.Focus == FocusResults && m.resultsFilter != "" {
			m.resultsFilter = ""
			m.clampResultCursor()
		} else if m.Focus == FocusSaved && m.savedFilter != "" {
			m.savedFilter = ""
			m.clampSavedCursor()
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.filterTarget = m.Focus
		if m.Focus == FocusResults {
			m.FilterModal.Show("Filter results", m.resultsFilter)
		} else {
			m.FilterModal.Show("Filter saved searches", m.savedFilter)
		}
		return m, nil

	case key.Matches(msg, Keys.Save):
		return m.saveSearch()

	case key.Matches(msg, Keys.Refresh):
		// Disabled while a list fetch is in flight
		if m.saved.Loading {
			return m, nil
		}
		cmd := m.refreshSaved()
		return m, cmd

	case key.Matches(msg, Keys.Docs):
		return m, OpenURLCmd(m.Opener, m.DocsURL())

	case key.Matches(msg, Keys.Account):
		m.openAuth()
		return m, nil

	case key.Matches(msg, Keys.Logout):
		m.openAuth()
		return m.signOut()
	}

	return m, nil
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	n := len(m.visibleResults())

	switch {
	case key.Matches(msg, Keys.Up):
		if m.resultCursor > 0 {
			m.resultCursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.resultCursor < n-1 {
			m.resultCursor++
		}
	case key.Matches(msg, Keys.Home):
		m.resultCursor = 0
	case key.Matches(msg, Keys.End):
		m.resultCursor = n - 1
	case key.Matches(msg, Keys.Open):
		if l, ok := m.selectedListing(); ok && l.URL != "" {
			return true, OpenURLCmd(m.Opener, l.URL)
		}
		return true, nil
	default:
		return false, nil
	}

	m.clampResultCursor()
	return true, nil
}

func (m Model) handleSavedKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	n := len(m.visibleSaved())

	switch {
	case key.Matches(msg, Keys.Up):
		if m.savedCursor > 0 {
			m.savedCursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.savedCursor < n-1 {
			m.savedCursor++
		}
	case key.Matches(msg, Keys.Home):
		m.savedCursor = 0
	case key.Matches(msg, Keys.End):
		m.savedCursor = n - 1
		m.clampSavedCursor()
	case key.Matches(msg, Keys.Run):
		if s, ok := m.selectedSaved(); ok {
			model, cmd := m.runSaved(s.ID)
			return true, model, cmd
		}
	case key.Matches(msg, Keys.Delete):
		if s, ok := m.selectedSaved(); ok {
			model, cmd := m.deleteSaved(s.ID)
			return true, model, cmd
		}
	default:
		return false, m, nil
	}
	return true, m, nil
}

// handleFilterKey feeds the filter prompt and applies its value as typed
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var result components.InputResult
	m.FilterModal, cmd, result = m.FilterModal.Update(msg)

	value := m.FilterModal.Value()
	if result == components.InputCancelled {
		value = ""
	}

	if m.filterTarget == FocusResults {
		m.resultsFilter = value
		m.resultCursor = 0
		m.clampResultCursor()
	} else {
		m.savedFilter = value
		m.savedCursor = 0
		m.clampSavedCursor()
	}
	return m, cmd
}
