package domain

import "time"

// Role enumerates storefront identities.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may use the staff area.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Principal is a storefront identity as seen by authentication.
type Principal struct {
	ID           string
	Email        string
	DisplayName  string
	Role         Role
	Banned       bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
