package identity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marketly/marketly/internal/domain"
)

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user"`
}

// Claims are the access token fields the client cares about
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// ParseClaims reads claims from an access token without verifying its
// signature. Verification is the backend's job; the client only needs
// expiry and identity for display.
func ParseClaims(accessToken string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, mc); err != nil {
		return Claims{}, fmt.Errorf("failed to parse access token: %w", err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = role
	}
	return c, nil
}

// parseTokenResponse builds a session from a /token response. Expiry and
// user fall back to the access token's claims when the body omits them.
func parseTokenResponse(body []byte, now time.Time) (*domain.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	session := &domain.Session{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		User:         tr.User,
	}

	switch {
	case tr.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		session.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if session.ExpiresAt.IsZero() || session.User == nil {
		if claims, err := ParseClaims(tr.AccessToken); err == nil {
			if session.ExpiresAt.IsZero() {
				session.ExpiresAt = claims.ExpiresAt
			}
			if session.User == nil && claims.Subject != "" {
				session.User = &domain.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
			}
		}
	}

	return session, nil
}
