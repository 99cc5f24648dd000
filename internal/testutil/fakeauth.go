package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// FakeAuthAnonKey is the apikey the fake identity service expects
const FakeAuthAnonKey = "test-anon-key"

var fakeAuthSecret = []byte("fake-auth-secret")

type fakeUser struct {
	id       string
	email    string
	password string
}

// FakeAuth is an in-memory GoTrue-compatible identity service
type FakeAuth struct {
	Server *httptest.Server

	// TokenTTL is the access token lifetime for new sessions
	TokenTTL time.Duration

	mu            sync.Mutex
	users         map[string]*fakeUser // by email
	refreshTokens map[string]string    // refresh token -> email
	revoked       map[string]bool      // access tokens that signed out
	nextID        int
	logoutCalls   int
}

// NewFakeAuth starts a fake identity service that is closed with the test
func NewFakeAuth(t testing.TB) *FakeAuth {
	t.Helper()

	f := &FakeAuth{
		TokenTTL:      time.Hour,
		users:         make(map[string]*fakeUser),
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
		nextID:        1,
	}

	r := chi.NewRouter()
	r.Route("/auth/v1", func(r chi.Router) {
		r.Use(f.requireAPIKey)
		r.Post("/signup", f.handleSignUp)
		r.Post("/token", f.handleToken)
		r.Post("/logout", f.handleLogout)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake's base URL
func (f *FakeAuth) URL() string {
	return f.Server.URL
}

// AddUser registers a confirmed user directly
func (f *FakeAuth) AddUser(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password).id
}

// LogoutCalls returns how many times /logout was hit
func (f *FakeAuth) LogoutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

// MintAccessToken signs an access token for subject/email expiring at exp
func MintAccessToken(subject, email string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"role":  "authenticated",
		"exp":   exp.Unix(),
		"iat":   time.Now().Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeAuthSecret)
	if err != nil {
		panic(err)
	}
	return tok
}

func (f *FakeAuth) addUserLocked(email, password string) *fakeUser {
	u := &fakeUser{
		id:       fmt.Sprintf("00000000-0000-0000-0000-%012d", f.nextID),
		email:    email,
		password: password,
	}
	f.nextID++
	f.users[email] = u
	return u
}

func (f *FakeAuth) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != FakeAuthAnonKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

func (f *FakeAuth) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Invalid body"})
		return
	}
	if !strings.Contains(in.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Unable to validate email address: invalid format"})
		return
	}
	if len(in.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "Password should be at least 6 characters"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[in.Email]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "User already registered"})
		return
	}
	u := f.addUserLocked(in.Email, in.Password)

	// Email confirmation pending: user only, no session
	writeJSON(w, http.StatusOK, map[string]string{"id": u.id, "email": u.email, "role": "authenticated"})
}

func (f *FakeAuth) handleToken(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var u *fakeUser
	switch r.URL.Query().Get("grant_type") {
	case "password":
		u = f.users[in.Email]
		if u == nil || u.password != in.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
	case "refresh_token":
		email, ok := f.refreshTokens[in.RefreshToken]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid Refresh Token: Refresh Token Not Found",
			})
			return
		}
		delete(f.refreshTokens, in.RefreshToken)
		u = f.users[email]
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "unsupported grant_type"})
		return
	}

	exp := time.Now().Add(f.TokenTTL)
	refresh := fmt.Sprintf("refresh-%s-%d", u.id, time.Now().UnixNano())
	f.refreshTokens[refresh] = u.email

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  MintAccessToken(u.id, u.email, exp),
		"token_type":    "bearer",
		"expires_in":    int(f.TokenTTL.Seconds()),
		"expires_at":    exp.Unix(),
		"refresh_token": refresh,
		"user":          map[string]string{"id": u.id, "email": u.email, "role": "authenticated"},
	})
}

func (f *FakeAuth) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++

	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "This endpoint requires a Bearer token"})
		return
	}
	f.revoked[token] = true
	w.WriteHeader(http.StatusNoContent)
}
