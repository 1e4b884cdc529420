package domain

import (
	"context"
	"time"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenClaims is what a verified token carries.
type TokenClaims struct {
	UserID    string
	SessionID string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionContext is the value stored alongside a live session.
type SessionContext struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User      *User
	SessionID string
}

type principalKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the authentication
// middleware, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil && p.User != nil
}
