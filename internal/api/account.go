package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	var out TokenPair
	in := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/token/", in, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.Access == "" {
		return nil, fmt.Errorf("login: empty access token")
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token. The returned pair
// keeps the refresh token when the server does not rotate it.
func (c *Client) Refresh(ctx context.Context, refresh string) (*TokenPair, error) {
	var out TokenPair
	if err := c.post(ctx, "/token/refresh/", map[string]string{"refresh": refresh}, &out); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if out.Refresh == "" {
		out.Refresh = refresh
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.get(ctx, "/profile/", nil, &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.put(ctx, "/profile/update/", in, &out); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, in PasswordChange) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := c.put(ctx, "/profile/change-password/", in, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// UploadBackground sends an image as multipart form data and returns the
// updated profile.
func (c *Client) UploadBackground(ctx context.Context, filename string, image io.Reader) (*Profile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("background_image", filename)
	if err != nil {
		return nil, fmt.Errorf("upload background: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("upload background: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload background: %w", err)
	}

	var out Profile
	b := body{contentType: w.FormDataContentType(), data: buf.Bytes()}
	if err := c.do(ctx, http.MethodPost, "/profile/background-image/", nil, b, &out); err != nil {
		return nil, fmt.Errorf("upload background: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteBackground(ctx context.Context) error {
	if err := c.delete(ctx, "/profile/background-image/delete/"); err != nil {
		return fmt.Errorf("delete background: %w", err)
	}
	return nil
}

func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	if err := c.get(ctx, "/dashboard/", nil, &out); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &out, nil
}

// CreateMissingLogs asks the server to backfill not_done logs for past days.
func (c *Client) CreateMissingLogs(ctx context.Context) error {
	if err := c.post(ctx, "/create-missing-logs/", nil, nil); err != nil {
		return fmt.Errorf("create missing logs: %w", err)
	}
	return nil
}
