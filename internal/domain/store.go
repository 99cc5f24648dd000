package domain

// SessionStore persists the identity session between runs
// (BoltDB + memory). Load returns (nil, false) when nothing is stored.
type SessionStore interface {
	LoadSession() (*Session, bool)
	SaveSession(s *Session) error
	ClearSession() error
	Close() error
}
