package ports

import (
	"context"
	"time"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// CredentialUpdate is a partial update of a credential record. Nil fields are
// left untouched.
type CredentialUpdate struct {
	// ResetLockout zeroes failedLoginAttempts and clears accountLockedUntil.
	ResetLockout      bool
	LastLoginAt       *time.Time
	PasswordHash      *string
	PasswordChangedAt *time.Time
	IsActive          *bool
}

// CredentialStore defines the interface for user credential persistence.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, upd CredentialUpdate) (*domain.User, error)
	// RegisterFailedLogin atomically increments failedLoginAttempts and sets
	// accountLockedUntil to lockUntil once the new count reaches maxAttempts.
	RegisterFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
