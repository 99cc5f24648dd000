package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/domain"
)

// Fixed auth form messages
const (
	msgSignedUp  = "Signed up! Now sign in."
	msgSignedIn  = "Signed in! Redirecting..."
	msgSignedOut = "Signed out."
)

func (m *Model) openAuth() {
	m.Screen = ScreenAuth
	m.authFocus = 0
	m.EmailInput.Focus()
	m.PasswordInput.Blur()
}

// handleAuthKey handles keys on the auth screen. The form does no
// validation of its own; the identity provider's errors are shown verbatim.
func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Escape):
		m.Screen = ScreenHome
		return m, nil

	case key.Matches(msg, Keys.NextPane, Keys.PrevPane) || msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		m.authFocus = 1 - m.authFocus
		if m.authFocus == 0 {
			m.EmailInput.Focus()
			m.PasswordInput.Blur()
		} else {
			m.EmailInput.Blur()
			m.PasswordInput.Focus()
		}
		return m, nil

	case key.Matches(msg, Keys.SignIn):
		return m.signIn()

	case key.Matches(msg, Keys.SignUp):
		return m.signUp()

	case key.Matches(msg, Keys.SignOut):
		return m.signOut()
	}

	var cmd tea.Cmd
	if m.authFocus == 0 {
		m.EmailInput, cmd = m.EmailInput.Update(msg)
	} else {
		m.PasswordInput, cmd = m.PasswordInput.Update(msg)
	}
	return m, cmd
}

// Each auth action clears the previous message before it runs

func (m Model) signUp() (Model, tea.Cmd) {
	m.clearAuthMsg()
	if m.Auth == nil {
		m.setAuthMsg(domain.ErrNoAuthProvider.Error(), true)
		return m, nil
	}
	return m, SignUpCmd(m.Auth, m.EmailInput.Value(), m.PasswordInput.Value())
}

func (m Model) signIn() (Model, tea.Cmd) {
	m.clearAuthMsg()
	if m.Auth == nil {
		m.setAuthMsg(domain.ErrNoAuthProvider.Error(), true)
		return m, nil
	}
	return m, SignInCmd(m.Auth, m.EmailInput.Value(), m.PasswordInput.Value())
}

// signOut asks for sign-out through the session provider when there is one.
// Session state is cleared by the provider's notification, not here.
func (m Model) signOut() (Model, tea.Cmd) {
	m.clearAuthMsg()
	switch {
	case m.Session != nil:
		return m, SignOutCmd(m.Session)
	case m.Auth != nil:
		return m, SignOutCmd(m.Auth)
	}
	m.setAuthMsg(msgSignedOut, false)
	return m, nil
}

func (m Model) handleAuthResult(msg AuthResultMsg) (tea.Model, tea.Cmd) {
	switch msg.Op {
	case AuthSignUp:
		if msg.Err != nil {
			m.setAuthMsg(errorText(msg.Err, "Sign up failed"), true)
			return m, nil
		}
		m.setAuthMsg(msgSignedUp, false)
		return m, nil

	case AuthSignIn:
		if msg.Err != nil {
			m.setAuthMsg(errorText(msg.Err, "Sign in failed"), true)
			return m, nil
		}
		m.setAuthMsg(msgSignedIn, false)
		m.PasswordInput.SetValue("")

		// Go home and reload what the server knows
		m.Screen = ScreenHome
		m.setStatus(msgSignedIn, false)
		cmd := m.refreshSaved()
		return m, tea.Batch(cmd, LoadBackendInfoCmd(m.SearchSvc))

	case AuthSignOut:
		// Sign-out always reports success; the local session is gone either way
		if msg.Err != nil {
			m.logger.Warn("remote sign-out failed", "error", msg.Err)
		}
		m.setAuthMsg(msgSignedOut, false)
		return m, nil
	}
	return m, nil
}

func (m *Model) clearAuthMsg() {
	m.AuthMsg = ""
	m.AuthIsErr = false
}

func (m *Model) setAuthMsg(msg string, isErr bool) {
	m.AuthMsg = msg
	m.AuthIsErr = isErr
}
