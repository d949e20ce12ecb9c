package models

// Role names stored in users.role.
const (
	RoleTechnician = "technician"
	RoleOffice     = "office"
	RoleAdmin      = "admin"
)

// User represents an account in the system.
// It maps to the `users` table in SQLite.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password" json:"-"`
	Role         string `db:"role" json:"role"`
	Email        string `db:"email" json:"email,omitempty"`
	FullName     string `db:"full_name" json:"full_name,omitempty"`
	CreatedDate  string `db:"created_date" json:"created_date,omitempty"`
	LastLogin    string `db:"last_login" json:"last_login,omitempty"`
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleTechnician, RoleOffice, RoleAdmin:
		return true
	}
	return false
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
