package model

import "time"

// AuthSession is the authenticated identity bound to a booking session.
// The bearer token it was derived from is stored separately.
type AuthSession struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest is the credential payload forwarded to the backend.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the backend's login response.
type TokenResponse struct {
	Token string `json:"token"`
}
