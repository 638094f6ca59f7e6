package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the user identity embedded in the backend's bearer token.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// ParseIdentity extracts the identity claims from a bearer token issued
// by the hospital backend. The backend signs and verifies its own
// tokens; this service never holds the signing secret, so the token is
// treated as an opaque credential and only its claims are read.
func ParseIdentity(token string) (*Identity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected token claims type")
	}

	id := &Identity{
		UserID: stringClaim(claims, "id"),
		Name:   stringClaim(claims, "name"),
		Email:  stringClaim(claims, "email"),
		Role:   stringClaim(claims, "role"),
	}

	if id.UserID == "" {
		if sub, err := parsed.Claims.GetSubject(); err == nil {
			id.UserID = sub
		}
	}
	if id.Name == "" {
		// The backend splits the name across two claims for some accounts.
		first := stringClaim(claims, "firstname")
		sur := stringClaim(claims, "surName")
		switch {
		case first != "" && sur != "":
			id.Name = first + " " + sur
		case sur != "":
			id.Name = sur
		case first != "":
			id.Name = first
		}
	}

	if id.UserID == "" {
		return nil, fmt.Errorf("token carries no user identity")
	}

	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	// Numeric ids arrive as float64 through encoding/json.
	if v, ok := claims[key].(float64); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
