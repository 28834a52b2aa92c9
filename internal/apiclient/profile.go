package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Profile fetches the signed-in user's profile: GET /api/profile.
func (c *Client) Profile(ctx context.Context, token string) (Record, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: "profile", method: http.MethodGet, path: "/api/profile", token: token}, nil, &out)
	return unwrapRecord(out), err
}

// UpdateProfile saves profile fields: PUT /api/profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, payload any) (Record, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: "profile", method: http.MethodPut, path: "/api/profile", token: token}, payload, &out)
	return unwrapRecord(out), err
}

// UploadAvatar posts a new avatar image as multipart form data.
func (c *Client) UploadAvatar(ctx context.Context, token string, up Upload) (Record, error) {
	if up.FieldName == "" {
		up.FieldName = "avatar"
	}
	body, contentType := multipartBody(up)
	resp, err := c.send(ctx, call{
		resource:    "profile",
		method:      http.MethodPost,
		path:        "/api/profile/avatar",
		token:       token,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Record{}, nil
	}
	return unwrapRecord(out), nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	if next == "" {
		return fmt.Errorf("apiclient: new password is required")
	}
	return c.doJSON(ctx, call{
		resource: "profile",
		method:   http.MethodPost,
		path:     "/api/profile/change-password",
		token:    token,
	}, changePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}
