package domain

import "context"

// AuthListener receives session change notifications.
// session is nil after sign-out.
type AuthListener func(event AuthEvent, session *Session)

// Subscription is the handle returned by IdentityProvider.OnAuthStateChange
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}

// IdentityProvider is the hosted email/password auth service
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error

	// GetSession returns the current session, or nil when signed out
	GetSession(ctx context.Context) (*Session, error)

	OnAuthStateChange(fn AuthListener) Subscription
}
