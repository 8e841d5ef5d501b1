package api

import (
	"context"
	"errors"
	"strings"
)

// LoginResult carries the bearer token issued by the backend.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and returns fresh credentials. The caller stores the
// token in the session and re-arms the unauthorized hook.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return LoginResult{}, errors.New("username is required")
	}

	var result LoginResult
	if err := c.post(ctx, "/api/auth/login", loginRequest{Username: username, Password: password}, &result); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(result.Token) == "" {
		return LoginResult{}, errors.New("login response is missing a token")
	}
	if result.Username == "" {
		result.Username = username
	}

	return result, nil
}

// Logout revokes the current token on the backend. A 401 here is not an
// error: the token was already dead.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/api/auth/logout", nil, nil)
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}

	return err
}
