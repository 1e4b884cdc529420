package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

// UserService manages credential records.
type UserService struct {
	users             ports.CredentialStore
	gate              sessionGate
	minPasswordLength int
	bcryptCost        int
	clock             clockwork.Clock
	log               zerolog.Logger
}

func NewUserService(
	users ports.CredentialStore,
	sessions ports.SessionRegistry,
	cfg AuthConfig,
	log zerolog.Logger,
) *UserService {
	cfg = cfg.withDefaults()
	if sessions == nil {
		sessions = UnavailableSessionRegistry{}
	}
	return &UserService{
		users:             users,
		gate:              sessionGate{reg: sessions, log: log},
		minPasswordLength: cfg.MinPasswordLength,
		bcryptCost:        cfg.BcryptCost,
		clock:             clockwork.NewRealClock(),
		log:               log,
	}
}

func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	username := normalizeUsername(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleEmployee
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	if err := domain.ValidatePasswordStrength(in.Password, s.minPasswordLength); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		EmployeeID:   strings.TrimSpace(in.EmployeeID),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  in.Permissions,
		AllowedIPs:   in.AllowedIPs,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created.Public(), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// Deactivate disables the account and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, id string) (*domain.User, error) {
	inactive := false
	user, err := s.users.Update(ctx, id, ports.CredentialUpdate{IsActive: &inactive})
	if err != nil {
		return nil, err
	}
	s.gate.revokeAll(context.WithoutCancel(ctx), id)

	s.log.Info().Str("user_id", id).Msg("user deactivated")
	return user.Public(), nil
}

// EnsureAdmin creates the bootstrap administrator unless the username is
// already taken.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.FindByUsername(ctx, normalizeUsername(username))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("ensure admin: %w", err)
	}

	_, err = s.Create(ctx, ports.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}
