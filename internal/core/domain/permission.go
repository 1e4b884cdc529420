package domain

// Permission names a capability checked by the permission gate.
type Permission string

const (
	PermApproveLeave         Permission = "approve:leave"
	PermApproveReimbursement Permission = "approve:reimbursement"
	PermManageSchedule       Permission = "manage:schedule"
	PermViewReports          Permission = "view:reports"
)

// AllPermissions lists every known permission in a stable order.
var AllPermissions = []Permission{
	PermApproveLeave,
	PermApproveReimbursement,
	PermManageSchedule,
	PermViewReports,
}

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermApproveLeave, PermApproveReimbursement, PermManageSchedule, PermViewReports:
		return true
	}
	return false
}

// ParsePermission converts a raw name into a Permission.
func ParsePermission(name string) (Permission, bool) {
	p := Permission(name)
	return p, p.Valid()
}

// Permissions holds the per-user capability flags.
type Permissions struct {
	CanApproveLeave         bool `json:"can_approve_leave"`
	CanApproveReimbursement bool `json:"can_approve_reimbursement"`
	CanManageSchedule       bool `json:"can_manage_schedule"`
	CanViewReports          bool `json:"can_view_reports"`
}

// Has reports whether the flag backing perm is set.
func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermApproveLeave:
		return p.CanApproveLeave
	case PermApproveReimbursement:
		return p.CanApproveReimbursement
	case PermManageSchedule:
		return p.CanManageSchedule
	case PermViewReports:
		return p.CanViewReports
	default:
		return false
	}
}

// Granted returns the permissions u effectively holds.
func (u *User) Granted() []Permission {
	out := make([]Permission, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		if u.Can(p) {
			out = append(out, p)
		}
	}
	return out
}
