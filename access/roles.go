package access

import "github.com/jrsteele09/go-intranet-client/users"

// Predefined role sets shared by guards across the intranet. These are
// literal membership sets, not a hierarchy: "manager or above" means the
// role is one of the listed strings. The directory stores roles in both
// English and Portuguese, hence the pairs.
var (
	adminRoles   = []string{"admin", "administrador"}
	managerRoles = []string{"admin", "administrador", "manager", "gerente"}
)

// AdminRoles returns the role set granting administrative access.
func AdminRoles() []string {
	return append([]string(nil), adminRoles...)
}

// ManagerRoles returns the role set for manager-or-above access. Admin roles
// are members of this set.
func ManagerRoles() []string {
	return append([]string(nil), managerRoles...)
}

// IsAdmin reports whether the user holds an administrative role.
func IsAdmin(u *users.User) bool {
	return u != nil && u.HasAnyRole(adminRoles...)
}

// IsManager reports whether the user is a manager or above.
func IsManager(u *users.User) bool {
	return u != nil && u.HasAnyRole(managerRoles...)
}

// RequireAdmin is a ready-made requirement for admin-only areas.
func RequireAdmin() Requirement {
	return Requirement{Roles: AdminRoles()}
}

// RequireManager is a ready-made requirement for manager-or-above areas.
func RequireManager() Requirement {
	return Requirement{Roles: ManagerRoles()}
}
