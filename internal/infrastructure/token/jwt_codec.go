package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Config holds the signing material for both token types.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type claims struct {
	UserID    string           `json:"userId"`
	SessionID string           `json:"sessionId"`
	Type      domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// JWTCodec issues HS256 tokens. Access and refresh tokens use distinct
// secrets, so one can never verify as the other.
type JWTCodec struct {
	cfg   Config
	clock clockwork.Clock
}

func NewJWTCodec(cfg Config) (*JWTCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token codec: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token codec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &JWTCodec{cfg: cfg, clock: clockwork.NewRealClock()}, nil
}

// WithClock replaces the codec's time source.
func (c *JWTCodec) WithClock(clock clockwork.Clock) *JWTCodec {
	c.clock = clock
	return c
}

func (c *JWTCodec) Issue(userID, sessionID string, typ domain.TokenType) (string, error) {
	secret, ttl, err := c.params(typ)
	if err != nil {
		return "", err
	}

	now := c.clock.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:    userID,
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (c *JWTCodec) Verify(raw string, typ domain.TokenType) (*domain.TokenClaims, error) {
	secret, _, err := c.params(typ)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	var cl claims
	_, err = jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	if cl.Type != typ || cl.UserID == "" || cl.SessionID == "" || cl.IssuedAt == nil {
		return nil, domain.ErrInvalidToken
	}

	return &domain.TokenClaims{
		UserID:    cl.UserID,
		SessionID: cl.SessionID,
		Type:      cl.Type,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *JWTCodec) params(typ domain.TokenType) ([]byte, time.Duration, error) {
	switch typ {
	case domain.TokenAccess:
		return []byte(c.cfg.AccessSecret), c.cfg.AccessTTL, nil
	case domain.TokenRefresh:
		return []byte(c.cfg.RefreshSecret), c.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token type %q", typ)
	}
}
