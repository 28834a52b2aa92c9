package apiclient

import (
	"context"
	"errors"
	"net/http"
)

// LoginResult carries the bearer token and the user record issued at login.
type LoginResult struct {
	Token string
	User  Record
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token: POST /api/auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: "auth", method: http.MethodPost, path: "/api/auth/login"}, loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	result := LoginResult{}
	for _, key := range []string{"access_token", "accessToken", "token"} {
		if s := out.String(key); s != "" {
			result.Token = s
			break
		}
	}
	if result.Token == "" {
		return LoginResult{}, errors.New("apiclient: login response has no access token")
	}
	for _, key := range []string{"user", "userData", "data"} {
		if nested, ok := out[key].(map[string]any); ok {
			result.User = Record(nested)
			break
		}
	}
	if result.User == nil {
		result.User = Record{}
	}
	return result, nil
}
