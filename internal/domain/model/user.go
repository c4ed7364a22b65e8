package model

import "time"

// Role grants access to parts of the API.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents a registered store account.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// ParseRole converts raw input into a known role.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(raw); r {
	case RoleCustomer, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}
