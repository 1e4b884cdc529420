package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
	"github.com/workforcehq/hrms-api/internal/pkg/metrics"
)

const (
	DefaultBcryptCost    = 12
	defaultWriteTimeout  = 5 * time.Second
	defaultSessionTTL    = 24 * time.Hour
	defaultMaxAttempts   = 5
	defaultLockDuration  = 15 * time.Minute
	dummyPasswordForHash = "timing-equaliser"
)

// AuthConfig tunes session lifetime, lockout and password hashing.
type AuthConfig struct {
	SessionTTL        time.Duration
	MaxLoginAttempts  int
	LockDuration      time.Duration
	MinPasswordLength int
	BcryptCost        int
	// WriteTimeout bounds persistence that must finish even if the caller
	// goes away.
	WriteTimeout time.Duration
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.MaxLoginAttempts <= 0 {
		c.MaxLoginAttempts = defaultMaxAttempts
	}
	if c.LockDuration <= 0 {
		c.LockDuration = defaultLockDuration
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = domain.DefaultMinPasswordLength
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// AuthService implements login, logout, refresh and per-request
// authentication.
type AuthService struct {
	users     ports.CredentialStore
	tokens    ports.TokenCodec
	gate      sessionGate
	cfg       AuthConfig
	clock     clockwork.Clock
	log       zerolog.Logger
	dummyHash []byte
}

func NewAuthService(
	users ports.CredentialStore,
	sessions ports.SessionRegistry,
	tokens ports.TokenCodec,
	cfg AuthConfig,
	log zerolog.Logger,
) (*AuthService, error) {
	cfg = cfg.withDefaults()
	if sessions == nil {
		sessions = UnavailableSessionRegistry{}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPasswordForHash), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &AuthService{
		users:     users,
		tokens:    tokens,
		gate:      sessionGate{reg: sessions, log: log},
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		log:       log,
		dummyHash: dummy,
	}, nil
}

// WithClock replaces the service's time source.
func (s *AuthService) WithClock(clock clockwork.Clock) *AuthService {
	s.clock = clock
	return s
}

// Login verifies credentials, maintains lockout bookkeeping and opens a new
// session.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	username := normalizeUsername(in.Username)
	if username == "" || in.Password == "" {
		s.loginOutcome("invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	// 1. Unknown users pay for a hash comparison too, so response time does
	// not reveal which usernames exist.
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		s.loginOutcome("invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.loginOutcome("error")
		return nil, fmt.Errorf("login: %w", err)
	}

	// 2. An open lock wins over a correct password.
	now := s.clock.Now().UTC()
	if user.IsLocked(now) {
		s.loginOutcome("locked")
		return nil, domain.ErrAccountLocked
	}

	writeCtx, cancel := s.writeContext(ctx)
	defer cancel()

	// 3. Wrong password: count it, arming the lock at the threshold.
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		updated, err := s.users.RegisterFailedLogin(writeCtx, user.ID, s.cfg.MaxLoginAttempts, now.Add(s.cfg.LockDuration))
		if err != nil {
			s.loginOutcome("error")
			return nil, fmt.Errorf("login: record failed attempt: %w", err)
		}
		if updated.IsLocked(now) {
			metrics.AccountLockoutsTotal.Inc()
			s.log.Warn().
				Str("user_id", user.ID).
				Int("attempts", updated.FailedLoginAttempts).
				Time("locked_until", *updated.AccountLockedUntil).
				Msg("account locked")
		}
		s.loginOutcome("invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.loginOutcome("deactivated")
		return nil, domain.ErrAccountDeactivated
	}

	// 4. Success clears the lockout pair.
	updated, err := s.users.Update(writeCtx, user.ID, ports.CredentialUpdate{
		ResetLockout: true,
		LastLoginAt:  &now,
	})
	if err != nil {
		s.loginOutcome("error")
		return nil, fmt.Errorf("login: reset lockout: %w", err)
	}

	// 5-6. New session, tokens bound to it.
	sessionID := uuid.NewString()
	pair, err := s.issuePair(updated.ID, sessionID)
	if err != nil {
		s.loginOutcome("error")
		return nil, fmt.Errorf("login: %w", err)
	}

	// 7. Best effort.
	s.gate.register(writeCtx, domain.SessionContext{
		UserID:    updated.ID,
		SessionID: sessionID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		CreatedAt: now,
	}, s.cfg.SessionTTL)

	s.loginOutcome("success")
	s.log.Info().Str("user_id", updated.ID).Str("session_id", sessionID).Str("ip", in.IPAddress).Msg("user logged in")

	return &ports.LoginResult{
		User:      updated.Public(),
		SessionID: sessionID,
		TokenPair: *pair,
	}, nil
}

// Logout revokes a session. Revoking an unknown session succeeds; an
// unreachable registry is reported as domain.ErrStoreUnavailable.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	writeCtx, cancel := s.writeContext(ctx)
	defer cancel()

	if err := s.gate.revoke(writeCtx, userID, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("user logged out")
	return nil
}

// Refresh re-validates the session and its owner behind refreshToken and
// rotates both tokens. The session itself is not re-created.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	if err := s.gate.check(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, err
	}
	if _, err := s.currentUser(ctx, claims); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

// Authenticate resolves an access token into the calling principal.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	if accessToken == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := s.tokens.Verify(accessToken, domain.TokenAccess)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	if err := s.gate.check(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, err
	}

	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{User: user.Public(), SessionID: claims.SessionID}, nil
}

// currentUser loads the token's owner and rejects tokens that outlived the
// account or its password. Refresh relies on this when the registry cannot
// vouch for the session.
func (s *AuthService) currentUser(ctx context.Context, claims *domain.TokenClaims) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load token owner: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	if user.CredentialRotatedSince(claims.IssuedAt) {
		return nil, domain.ErrCredentialRotated
	}
	return user, nil
}

// ChangePassword replaces the user's password and revokes every session.
// Tokens issued before the change stop authenticating.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePasswordStrength(next, s.cfg.MinPasswordLength); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	hashed := string(hash)
	now := s.clock.Now().UTC()

	writeCtx, cancel := s.writeContext(ctx)
	defer cancel()

	if _, err := s.users.Update(writeCtx, userID, ports.CredentialUpdate{
		PasswordHash:      &hashed,
		PasswordChangedAt: &now,
	}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.gate.revokeAll(writeCtx, userID)

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

func (s *AuthService) issuePair(userID, sessionID string) (*ports.TokenPair, error) {
	access, err := s.tokens.Issue(userID, sessionID, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(userID, sessionID, domain.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenAccess)).Inc()
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenRefresh)).Inc()
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// writeContext detaches from the caller's cancellation so lockout and
// session writes are not cut in half by a disconnect.
func (s *AuthService) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
}

func (s *AuthService) loginOutcome(outcome string) {
	metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
