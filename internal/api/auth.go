package api

import (
	"context"
	"net/http"

	"mobilestore/internal/domain"
)

// Login posts credentials. It never carries a bearer or triggers a refresh,
// so a failed login cannot disturb a stored session.
func (c *Client) Login(ctx context.Context, creds domain.LoginData) (*Envelope[domain.AuthResponse], error) {
	return do[domain.AuthResponse](ctx, c, call{method: http.MethodPost, path: "/auth/login", body: creds, anonymous: true})
}

func (c *Client) Logout(ctx context.Context) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodPost, path: "/auth/logout"})
}

func (c *Client) Profile(ctx context.Context) (*Envelope[domain.AdminUser], error) {
	return do[domain.AdminUser](ctx, c, call{method: http.MethodGet, path: "/auth/profile"})
}
