package models

// UserRole enumerates the dashboard roles known to the gateway.
type UserRole string

const (
	RoleAdministrator UserRole = "administrator"
	RoleStaff         UserRole = "staff"
	RoleTeacher       UserRole = "teacher"
	RoleStudent       UserRole = "student"
)

// Valid reports whether the role is one of the known dashboard roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdministrator, RoleStaff, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is the cached profile delivered by the EMIS backend on login.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	FirstName   string   `json:"first_name"`
	MiddleName  string   `json:"middle_name,omitempty"`
	LastName    string   `json:"last_name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// FullName joins the non-empty name parts with single spaces.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += " "
		}
		name += p
	}
	return name
}

// HasPermission reports whether the user carries the capability code.
// Administrators bypass fine-grained checks entirely.
func (u *User) HasPermission(code string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdministrator {
		return true
	}
	for _, p := range u.Permissions {
		if p == code {
			return true
		}
	}
	return false
}
