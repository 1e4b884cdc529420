package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
	"github.com/workforcehq/hrms-api/internal/pkg/metrics"
)

const (
	revokeAttempts = 3
	revokeBackoff  = 100 * time.Millisecond
)

// UnavailableSessionRegistry is the registry used when no session store is
// configured. Every call reports domain.ErrStoreUnavailable.
type UnavailableSessionRegistry struct{}

func (UnavailableSessionRegistry) Create(context.Context, string, string, domain.SessionContext, time.Duration) error {
	return domain.ErrStoreUnavailable
}

func (UnavailableSessionRegistry) Exists(context.Context, string, string) (bool, error) {
	return false, domain.ErrStoreUnavailable
}

func (UnavailableSessionRegistry) Delete(context.Context, string, string) error {
	return domain.ErrStoreUnavailable
}

func (UnavailableSessionRegistry) DeleteAll(context.Context, string) error {
	return domain.ErrStoreUnavailable
}

// sessionGate owns the degraded-mode policy. It is the only place that
// decides what an unavailable registry means for each operation.
type sessionGate struct {
	reg ports.SessionRegistry
	log zerolog.Logger
}

// register records a new session. Failure never aborts the caller.
func (g sessionGate) register(ctx context.Context, sc domain.SessionContext, ttl time.Duration) {
	if err := g.reg.Create(ctx, sc.UserID, sc.SessionID, sc, ttl); err != nil {
		g.degraded("create", err).Str("user_id", sc.UserID).Msg("session not registered, continuing stateless")
	}
}

// check returns domain.ErrSessionExpired when the registry no longer knows
// the session. An unavailable registry lets the token stand on its own.
func (g sessionGate) check(ctx context.Context, userID, sessionID string) error {
	ok, err := g.reg.Exists(ctx, userID, sessionID)
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		g.degraded("exists", err).Str("user_id", userID).Msg("session check skipped")
		return nil
	case err != nil:
		return fmt.Errorf("check session: %w", err)
	case !ok:
		return domain.ErrSessionExpired
	}
	return nil
}

// revoke deletes one session, retrying while the registry is unavailable.
// Logout must not report success without the delete landing.
func (g sessionGate) revoke(ctx context.Context, userID, sessionID string) error {
	op := func() error {
		err := g.reg.Delete(ctx, userID, sessionID)
		if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(revokeBackoff), revokeAttempts-1),
		ctx,
	)

	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		g.degraded("delete", err).Str("user_id", userID).Int("attempts", revokeAttempts).Msg("session revocation failed")
		return domain.ErrStoreUnavailable
	}
	return fmt.Errorf("delete session: %w", err)
}

// revokeAll deletes every session of a user on a best-effort basis.
func (g sessionGate) revokeAll(ctx context.Context, userID string) {
	if err := g.reg.DeleteAll(ctx, userID); err != nil {
		g.degraded("delete_all", err).Str("user_id", userID).Msg("sessions not revoked")
	}
}

func (g sessionGate) degraded(op string, err error) *zerolog.Event {
	metrics.SessionRegistryDegradedTotal.WithLabelValues(op).Inc()
	return g.log.Warn().Err(err).Str("operation", op)
}
