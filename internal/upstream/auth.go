package upstream

import (
	"context"

	"github.com/meditermin/booking-api/internal/model"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
)

// Login exchanges credentials for a bearer token. The backend owns the
// accounts; a failed login is an auth error, never a reason to touch any
// booking state.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	req := model.LoginRequest{Email: email, Password: password}

	var resp model.TokenResponse
	if err := c.post(ctx, "login", "/api/auth/login", "", req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", apperrors.Unauthorized("login failed", nil)
	}
	return resp.Token, nil
}
