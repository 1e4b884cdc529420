package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type permissionsRequest struct {
	CanApproveLeave         bool `json:"can_approve_leave"`
	CanApproveReimbursement bool `json:"can_approve_reimbursement"`
	CanManageSchedule       bool `json:"can_manage_schedule"`
	CanViewReports          bool `json:"can_view_reports"`
}

type createUserRequest struct {
	EmployeeID  string             `json:"employee_id"`
	Username    string             `json:"username"   validate:"required,min=3"`
	Email       string             `json:"email"      validate:"omitempty,email"`
	Password    string             `json:"password"   validate:"required"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Role        string             `json:"role"       validate:"omitempty,oneof=admin hr manager employee client"`
	Permissions permissionsRequest `json:"permissions"`
	AllowedIPs  []string           `json:"allowed_ips" validate:"omitempty,dive,required"`
}

type accessReport struct {
	UserID      string              `json:"user_id"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
	AllowedIPs  []string            `json:"allowed_ips,omitempty"`
}

// Create registers a new user account.
//
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Create(c.Request().Context(), ports.CreateUserInput{
		EmployeeID: req.EmployeeID,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       domain.Role(req.Role),
		Permissions: domain.Permissions{
			CanApproveLeave:         req.Permissions.CanApproveLeave,
			CanApproveReimbursement: req.Permissions.CanApproveReimbursement,
			CanManageSchedule:       req.Permissions.CanManageSchedule,
			CanViewReports:          req.Permissions.CanViewReports,
		},
		AllowedIPs: req.AllowedIPs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userResponse{User: user})
}

// Get returns a user profile.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.userService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// Deactivate disables a user account and revokes its sessions.
//
// @Summary      Deactivate user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/users/{id}/deactivate [patch]
func (h *UserHandler) Deactivate(c echo.Context) error {
	user, err := h.userService.Deactivate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// AccessReport lists the caller's effective role, permissions and network
// restrictions.
//
// @Summary      Access report
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accessReport
// @Failure      403  {object}  map[string]string
// @Router       /v1/reports/access [get]
func (h *UserHandler) AccessReport(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessReport{
		UserID:      p.User.ID,
		Role:        p.User.Role,
		Permissions: p.User.Granted(),
		AllowedIPs:  p.User.AllowedIPs,
	})
}

// lookupError turns a missing target user into 404. Outside of lookups the
// same error means the caller could not be authenticated.
func lookupError(err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found").SetInternal(err)
	}
	return err
}
