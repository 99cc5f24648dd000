package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/service"
	"github.com/marketly/marketly/internal/session"
)

// Command factories for async operations.
// Requests carry no timeout; the transport decides when to give up.

// SearchCmd runs q and tags the response with seq
func SearchCmd(svc *service.SearchService, seq uint64, q domain.SearchQuery) tea.Cmd {
	return func() tea.Msg {
		resp, err := svc.Search(context.Background(), q)
		return SearchResultMsg{Seq: seq, Response: resp, Err: err}
	}
}

// RunSavedCmd runs saved search id and tags the response with the search seq
func RunSavedCmd(svc *service.SavedSearchService, seq uint64, id int64, limit int) tea.Cmd {
	return func() tea.Msg {
		resp, err := svc.Run(context.Background(), id, limit)
		return SearchResultMsg{Seq: seq, Response: resp, Err: err, Run: true}
	}
}

// LoadSavedCmd fetches the saved-search list and tags it with seq
func LoadSavedCmd(svc *service.SavedSearchService, seq uint64) tea.Cmd {
	return func() tea.Msg {
		list, err := svc.List(context.Background())
		return SavedListMsg{Seq: seq, Saved: list, Err: err}
	}
}

// CreateSavedCmd saves query with the sources field split into tokens
func CreateSavedCmd(svc *service.SavedSearchService, query, sourcesField string) tea.Cmd {
	return func() tea.Msg {
		err := svc.Create(context.Background(), query, sourcesField)
		return SavedMutatedMsg{Op: OpCreate, Err: err}
	}
}

// DeleteSavedCmd deletes saved search id
func DeleteSavedCmd(svc *service.SavedSearchService, id int64) tea.Cmd {
	return func() tea.Msg {
		err := svc.Delete(context.Background(), id)
		return SavedMutatedMsg{Op: OpDelete, ID: id, Err: err}
	}
}

// LoadBackendInfoCmd fetches backend health and available sources
func LoadBackendInfoCmd(svc *service.SearchService) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		health, err := svc.Health(ctx)
		if err != nil {
			return BackendInfoMsg{Err: err}
		}
		sources, err := svc.Sources(ctx)
		return BackendInfoMsg{Health: health, Sources: sources, Err: err}
	}
}

// ListenSessionCmd waits for the next session snapshot
func ListenSessionCmd(changes <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-changes
		if !ok {
			return SessionChangedMsg{Closed: true}
		}
		return SessionChangedMsg{State: st}
	}
}

// SignUpCmd registers a new account without signing in
func SignUpCmd(idp domain.IdentityProvider, email, password string) tea.Cmd {
	return func() tea.Msg {
		err := idp.SignUp(context.Background(), email, password)
		return AuthResultMsg{Op: AuthSignUp, Err: err}
	}
}

// SignInCmd signs in with email and password
func SignInCmd(idp domain.IdentityProvider, email, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := idp.SignInWithPassword(context.Background(), email, password)
		return AuthResultMsg{Op: AuthSignIn, Err: err}
	}
}

// SignOuter ends a session. Both the identity provider and the session
// provider satisfy it.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// SignOutCmd ends the current session
func SignOutCmd(s SignOuter) tea.Cmd {
	return func() tea.Msg {
		err := s.SignOut(context.Background())
		return AuthResultMsg{Op: AuthSignOut, Err: err}
	}
}

// OpenURLCmd hands url to the browser
func OpenURLCmd(opener Opener, url string) tea.Cmd {
	return func() tea.Msg {
		return OpenedMsg{URL: url, Err: opener.Open(url)}
	}
}
