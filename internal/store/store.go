package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marketly/marketly/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// SessionStore implements domain.SessionStore using BoltDB.
// Sessions are keyed by identity provider so switching projects never
// reuses another provider's tokens.
type SessionStore struct {
	db  *bolt.DB
	key []byte

	mu     sync.RWMutex // Protects memory copy
	memory []byte
}

// NewSessionStore opens (or creates) the session database at path.
// An empty path gives a memory-only store.
func NewSessionStore(path, providerURL string) (*SessionStore, error) {
	s := &SessionStore{key: []byte(hashProviderURL(providerURL))}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func hashProviderURL(providerURL string) string {
	normalized := strings.TrimRight(strings.ToLower(providerURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Close releases the database file lock
func (s *SessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadSession returns the stored session, promoting it to memory on first read
func (s *SessionStore) LoadSession() (*domain.Session, bool) {
	s.mu.RLock()
	data := s.memory
	s.mu.RUnlock()

	if data == nil && s.db != nil {
		s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketSessions)
			if b == nil {
				return nil
			}
			if v := b.Get(s.key); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if data != nil {
			s.mu.Lock()
			s.memory = data
			s.mu.Unlock()
		}
	}

	if data == nil {
		return nil, false
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false
	}
	return &session, true
}

// SaveSession persists session. A nil session clears the store.
func (s *SessionStore) SaveSession(session *domain.Session) error {
	if session == nil {
		return s.ClearSession()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.memory = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(s.key, data)
	})
}

// ClearSession removes the stored session
func (s *SessionStore) ClearSession() error {
	s.mu.Lock()
	s.memory = nil
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		return b.Delete(s.key)
	})
}
