package apiclient

import (
	"context"
	"net/http"
	"strings"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The server returns the new user id but no token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	var resp envelope[struct {
		UserID string `json:"userId"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", nil, in, &resp); err != nil {
		return "", err
	}
	if err := checkSuccess(resp, http.StatusOK, true); err != nil {
		return "", err
	}
	return resp.Data.UserID, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp envelope[struct {
		Token string `json:"token"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", nil, payload, &resp); err != nil {
		return "", err
	}
	if err := checkSuccess(resp, http.StatusOK, true); err != nil {
		return "", err
	}
	token := strings.TrimSpace(resp.Data.Token)
	if token == "" {
		return "", &APIError{Status: http.StatusOK, Message: strings.TrimSpace(resp.message())}
	}
	return token, nil
}
