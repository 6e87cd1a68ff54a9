package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/abelbrown/quill/internal/blog"
)

// Session is a signed-in user and the token that authenticates them.
type Session struct {
	User  blog.User `json:"user"`
	Token string    `json:"token"`
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, path, nil, body, &s); err != nil {
		return Session{}, err
	}
	if s.Token == "" {
		return Session{}, fmt.Errorf("missing token: %w", ErrMalformed)
	}
	return s, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	s, err := c.authenticate(ctx, "/auth/login", body)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	return s, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (Session, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	s, err := c.authenticate(ctx, "/auth/register", body)
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}
	return s, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (blog.User, error) {
	var out struct {
		User *blog.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return blog.User{}, fmt.Errorf("me: %w", err)
	}
	if out.User == nil {
		return blog.User{}, fmt.Errorf("me: missing user: %w", ErrMalformed)
	}
	return *out.User, nil
}

// UpdateMe changes the signed-in user's name and email.
func (c *Client) UpdateMe(ctx context.Context, name, email string) error {
	body := map[string]string{"name": name, "email": email}
	if err := c.do(ctx, http.MethodPatch, "/users/me", nil, body, nil); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// ChangePassword replaces the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	if err := c.do(ctx, http.MethodPost, "/users/me/change-password", nil, body, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]blog.User, error) {
	var out struct {
		Users []blog.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out.Users, nil
}

// DeleteUser removes an account and its posts. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}
