package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/marketly/marketly/internal/domain"
)

// Error is a failure reported by the identity service.
// Error() returns the provider's own text verbatim.
type Error struct {
	Status  int
	Code    string // e.g. "invalid_grant"; often empty
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes rejected credentials match domain.ErrAuthFailed
func (e *Error) Is(target error) bool {
	if target != domain.ErrAuthFailed {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Code == "invalid_grant"
}

// Client implements domain.IdentityProvider against a GoTrue-compatible
// (Supabase Auth) service. The current session lives in a SessionStore.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	store      domain.SessionStore
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	listeners map[int]domain.AuthListener
	nextID    int
}

// NewClient creates an identity client. baseURL is the project URL
// (the /auth/v1 prefix is added here).
func NewClient(baseURL, anonKey string, store domain.SessionStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{},
		store:      store,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[int]domain.AuthListener),
	}
}

// SignUp registers a new account. It never signs the user in, even when the
// service answers with a session.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	if _, err := c.post(ctx, "/signup", "", payload); err != nil {
		return err
	}
	c.logger.Info("signed up", "email", email)
	return nil
}

// SignInWithPassword exchanges credentials for a session, stores it and
// notifies subscribers with SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	body, err := c.post(ctx, "/token?grant_type=password", "", payload)
	if err != nil {
		return nil, err
	}

	session, err := parseTokenResponse(body, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveSession(session); err != nil {
		c.logger.Warn("failed to persist session", "error", err)
	}

	c.logger.Info("signed in", "user_id", userID(session))
	c.emit(domain.AuthEventSignedIn, session)
	return session, nil
}

// SignOut drops the local session, revokes it remotely when possible and
// always notifies subscribers with SIGNED_OUT.
func (c *Client) SignOut(ctx context.Context) error {
	session, _ := c.store.LoadSession()

	if err := c.store.ClearSession(); err != nil {
		c.logger.Warn("failed to clear session", "error", err)
	}

	var remoteErr error
	if session != nil && session.AccessToken != "" {
		if _, err := c.post(ctx, "/logout", session.AccessToken, nil); err != nil {
			c.logger.Warn("remote sign-out failed", "error", err)
			remoteErr = err
		}
	}

	c.emit(domain.AuthEventSignedOut, nil)
	return remoteErr
}

// GetSession returns the stored session, refreshing it first when the access
// token has expired. Returns (nil, nil) when signed out.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	session, ok := c.store.LoadSession()
	if !ok {
		return nil, nil
	}
	if !session.Expired(c.now()) {
		return session, nil
	}
	if session.RefreshToken == "" {
		_ = c.store.ClearSession()
		return nil, nil
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		c.logger.Warn("session refresh failed", "error", err)
		_ = c.store.ClearSession()
		c.emit(domain.AuthEventSignedOut, nil)
		return nil, err
	}
	return refreshed, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	body, err := c.post(ctx, "/token?grant_type=refresh_token", "", payload)
	if err != nil {
		return nil, err
	}

	session, err := parseTokenResponse(body, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveSession(session); err != nil {
		c.logger.Warn("failed to persist session", "error", err)
	}

	c.logger.Debug("session refreshed", "user_id", userID(session))
	c.emit(domain.AuthEventTokenRefreshed, session)
	return session, nil
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// OnAuthStateChange registers fn for session change notifications.
// fn runs on the goroutine that caused the change.
func (c *Client) OnAuthStateChange(fn domain.AuthListener) domain.Subscription {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return &subscription{cancel: func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}}
}

func (c *Client) emit(event domain.AuthEvent, session *domain.Session) {
	c.mu.Lock()
	fns := make([]domain.AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// post sends a JSON body to /auth/v1<path> and returns the 2xx response body
func (c *Client) post(ctx context.Context, path, bearer string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1"+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("identity request failed", "path", path, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("identity request error", "path", path, "status", resp.StatusCode)
		return nil, parseError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// parseError extracts the provider's message. GoTrue uses different fields
// across endpoints and versions.
func parseError(status int, body []byte) error {
	var fields struct {
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &fields) == nil {
		for _, candidate := range []string{fields.Msg, fields.ErrorDescription, fields.Message, fields.Error} {
			if strings.TrimSpace(candidate) != "" {
				msg = candidate
				break
			}
		}
	} else {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &Error{Status: status, Code: fields.Error, Message: msg}
}

func userID(s *domain.Session) string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}
