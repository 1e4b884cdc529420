package ports

import (
	"context"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResult struct {
	User      *domain.User `json:"user"`
	SessionID string       `json:"session_id"`
	TokenPair
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID, sessionID string) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// Authenticator resolves an access token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error)
}
