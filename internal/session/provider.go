// Package session holds the process-wide authentication state.
//
// A Provider mirrors the identity provider's current session: it fetches the
// session once on Start, follows change notifications until Close, and
// publishes each new State on Changes. Reads outside a provider's lifetime
// panic instead of returning zero values.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marketly/marketly/internal/domain"
)

// State is a snapshot of the authentication state
type State struct {
	User        *domain.User
	Session     *domain.Session
	AccessToken string // "" when signed out
	Loading     bool   // true only until the first session check resolves
	Event       domain.AuthEvent
}

// SignedIn reports whether a session is present
func (s State) SignedIn() bool {
	return s.Session != nil
}

func stateFor(event domain.AuthEvent, s *domain.Session) State {
	st := State{Session: s, Event: event}
	if s != nil {
		st.User = s.User
		st.AccessToken = s.AccessToken
	}
	return st
}

// Provider wraps an IdentityProvider's session lifecycle
type Provider struct {
	idp    domain.IdentityProvider
	logger *slog.Logger

	startOnce sync.Once

	mu       sync.Mutex
	state    State
	notified bool // a change notification has been applied
	closed   bool
	sub      domain.Subscription
	changes  chan State
}

// NewProvider creates a provider in the loading state. Call Start to begin.
func NewProvider(idp domain.IdentityProvider, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		idp:     idp,
		logger:  logger,
		state:   State{Loading: true},
		changes: make(chan State, 1),
	}
}

// Start subscribes to session changes and fetches the current session once,
// asynchronously. Later calls are no-ops.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.sub = p.idp.OnAuthStateChange(p.onChange)
		p.mu.Unlock()

		go func() {
			s, err := p.idp.GetSession(ctx)
			p.applyInitial(s, err)
		}()
	})
}

func (p *Provider) applyInitial(s *domain.Session, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Torn down while the fetch was in flight
	if p.closed {
		p.logger.Debug("discarding session fetch after close")
		return
	}
	// A notification already delivered newer state
	if p.notified {
		return
	}

	if err != nil {
		p.logger.Warn("initial session fetch failed", "error", err)
		s = nil
	}
	p.state = stateFor(domain.AuthEventInitialSession, s)
	p.publishLocked()
}

func (p *Provider) onChange(event domain.AuthEvent, s *domain.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.notified = true
	p.state = stateFor(event, s)
	p.logger.Debug("session changed", "event", event, "signed_in", s != nil)
	p.publishLocked()
}

// publishLocked replaces any unread State on the channel with the current one
func (p *Provider) publishLocked() {
	select {
	case <-p.changes:
	default:
	}
	p.changes <- p.state
}

// State returns the current snapshot. It panics after Close.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("session: State called on a closed Provider")
	}
	return p.state
}

// AccessToken returns the current access token or "". It panics after Close.
func (p *Provider) AccessToken() string {
	return p.State().AccessToken
}

// TokenSource returns the current access token for outgoing API calls.
// Requests still in flight when the provider closes go out unauthenticated.
func (p *Provider) TokenSource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ""
	}
	return p.state.AccessToken
}

// Changes delivers the latest State after every update. Only the newest
// unread State is kept. The channel is closed by Close.
func (p *Provider) Changes() <-chan State {
	return p.changes
}

// SignOut asks the identity provider to end the session. State is cleared by
// the resulting SIGNED_OUT notification, not here.
func (p *Provider) SignOut(ctx context.Context) error {
	return p.idp.SignOut(ctx)
}

// Close unsubscribes from notifications and discards any in-flight initial
// fetch. Safe to call more than once.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	close(p.changes)
}

type providerKey struct{}

// WithProvider returns a context carrying p
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the Provider in ctx. Calling it outside a provider's
// scope is a programming error and panics.
func FromContext(ctx context.Context) *Provider {
	p, ok := ctx.Value(providerKey{}).(*Provider)
	if !ok || p == nil {
		panic("session: FromContext called outside a session provider scope")
	}
	return p
}
