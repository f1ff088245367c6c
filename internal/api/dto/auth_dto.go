package dto

import "time"

// RegisterRequest payload for new customers.
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest payload shared by the customer, staff and admin logins.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PrincipalResponse is the public view of a principal.
type PrincipalResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// SessionResponse describes the caller's resolved identity.
type SessionResponse struct {
	Principal PrincipalResponse `json:"principal"`
	Source    string            `json:"source"`
}

// StaffTokenResponse reports the lifetime of an issued staff token.
type StaffTokenResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}
