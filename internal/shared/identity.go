package shared

import "strings"

// Identity is the user record returned by the login endpoint, kept in the
// session in place of the browser's userData entry.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

var adminRoles = map[string]struct{}{
	RoleAdmin:      {},
	RoleSuperAdmin: {},
	"super_admin":  {},
}

// Known roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleUser       = "user"
)

// IsAdmin reports whether the identity may use the admin console.
func (i Identity) IsAdmin() bool {
	_, ok := adminRoles[strings.ToLower(strings.TrimSpace(i.Role))]
	return ok
}

// DisplayName prefers the full name and falls back to the email.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return i.Email
}
