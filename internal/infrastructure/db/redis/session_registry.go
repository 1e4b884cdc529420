package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

const scanBatch = 100

// SessionRegistry tracks live sessions in Redis.
// Key format: session:<user_id>:<session_id>
type SessionRegistry struct {
	client *redis.Client
}

// NewSessionRegistry creates a SessionRegistry wrapping the given Redis client.
func NewSessionRegistry(client *redis.Client) *SessionRegistry {
	return &SessionRegistry{client: client}
}

// Create stores the session with the given TTL, replacing any previous entry.
func (r *SessionRegistry) Create(ctx context.Context, userID, sessionID string, sc domain.SessionContext, ttl time.Duration) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID, sessionID), payload, ttl).Err(); err != nil {
		return unavailable("create session", err)
	}
	return nil
}

// Exists reports whether the session is still live.
func (r *SessionRegistry) Exists(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(userID, sessionID)).Result()
	if err != nil {
		return false, unavailable("check session", err)
	}
	return n > 0, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (r *SessionRegistry) Delete(ctx context.Context, userID, sessionID string) error {
	if err := r.client.Del(ctx, r.key(userID, sessionID)).Err(); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// DeleteAll removes every session belonging to userID.
func (r *SessionRegistry) DeleteAll(ctx context.Context, userID string) error {
	iter := r.client.Scan(ctx, 0, r.key(userID, "*"), scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return unavailable("delete sessions", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return unavailable("scan sessions", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return unavailable("delete sessions", err)
		}
	}
	return nil
}

func (r *SessionRegistry) key(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
