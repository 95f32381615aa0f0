package users

import (
	"strings"
	"time"
)

// User is the intranet user record as returned by the authentication API.
// JSON field names follow the backend wire contract and must not be changed
// independently of it.
type User struct {
	Code        string     `json:"cdUsuario"`              // Unique user code (e.g. "F04821", "DBAMV")
	Name        string     `json:"nomeUsuario"`            // Display name
	CompanyID   int        `json:"cdMultiEmpresa"`         // Company the user logged into
	CompanyName string     `json:"nomeEmpresa"`            // Display name of that company
	Role        string     `json:"perfil"`                 // Single role tag, e.g. "admin", "gerente"
	LastAccess  *time.Time `json:"ultimoAcesso,omitempty"` // Last recorded access, if the backend tracks it
}

// Update carries a partial user record for shallow merges. Nil fields are
// left untouched on the target.
type Update struct {
	Name        *string
	CompanyID   *int
	CompanyName *string
	Role        *string
	LastAccess  *time.Time
}

// Merge returns a copy of u with the non-nil fields of the update applied.
// The user code is immutable; there is deliberately no way to change it here.
func (u User) Merge(update Update) User {
	merged := u
	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.CompanyID != nil {
		merged.CompanyID = *update.CompanyID
	}
	if update.CompanyName != nil {
		merged.CompanyName = *update.CompanyName
	}
	if update.Role != nil {
		merged.Role = *update.Role
	}
	if update.LastAccess != nil {
		merged.LastAccess = update.LastAccess
	}
	return merged
}

// HasRole reports whether the user's role equals the given role,
// case-insensitively. Roles are free-form strings in the directory, so
// "Gerente" and "GERENTE" are the same role.
func (u *User) HasRole(role string) bool {
	return strings.EqualFold(u.Role, role)
}

// HasAnyRole reports whether the user's role matches any of the given roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}
