package domain

import "time"

// Role is the fixed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// User is the credential record of an HR account.
type User struct {
	ID           string      `json:"id"`
	EmployeeID   string      `json:"employee_id"`
	Username     string      `json:"username"`
	Email        string      `json:"email,omitempty"`
	FirstName    string      `json:"first_name,omitempty"`
	LastName     string      `json:"last_name,omitempty"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	Permissions  Permissions `json:"permissions"`
	AllowedIPs   []string    `json:"allowed_ips,omitempty"`
	IsActive     bool        `json:"is_active"`

	FailedLoginAttempts int        `json:"failed_login_attempts"`
	AccountLockedUntil  *time.Time `json:"account_locked_until,omitempty"`
	PasswordChangedAt   *time.Time `json:"password_changed_at,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLocked reports whether the lockout window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now)
}

// CredentialRotatedSince reports whether the password changed after a token
// issued at issuedAt. Comparison is done on whole epoch seconds, the
// precision carried by the token.
func (u *User) CredentialRotatedSince(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// Can reports whether the user holds perm. Admins hold every known
// permission; unknown permissions are never granted.
func (u *User) Can(perm Permission) bool {
	if !perm.Valid() {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	return u.Permissions.Has(perm)
}

// Public returns a copy safe to hand out of the service layer.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	if u.AllowedIPs != nil {
		clone.AllowedIPs = append([]string(nil), u.AllowedIPs...)
	}
	return &clone
}
