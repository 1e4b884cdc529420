package ports

import (
	"context"
	"time"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

// SessionRegistry records which sessions are live. Implementations report an
// unreachable backend as domain.ErrStoreUnavailable, never as a missing key.
type SessionRegistry interface {
	Create(ctx context.Context, userID, sessionID string, sc domain.SessionContext, ttl time.Duration) error
	Exists(ctx context.Context, userID, sessionID string) (bool, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAll(ctx context.Context, userID string) error
}
