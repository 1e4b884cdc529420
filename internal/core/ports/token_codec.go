package ports

import "github.com/workforcehq/hrms-api/internal/core/domain"

// TokenCodec signs and verifies access and refresh tokens.
type TokenCodec interface {
	Issue(userID, sessionID string, typ domain.TokenType) (string, error)
	Verify(token string, typ domain.TokenType) (*domain.TokenClaims, error)
}
