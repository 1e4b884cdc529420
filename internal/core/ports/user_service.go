package ports

import (
	"context"

	"github.com/workforcehq/hrms-api/internal/core/domain"
)

type CreateUserInput struct {
	EmployeeID  string
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        domain.Role
	Permissions domain.Permissions
	AllowedIPs  []string
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Deactivate(ctx context.Context, id string) (*domain.User, error)
}
