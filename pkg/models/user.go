package models

// Role is the privilege level of a storage user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an authenticated storage identity.
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
