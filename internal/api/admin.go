package api

import (
	"context"
	"net/http"
	"net/url"

	"mobilestore/internal/domain"
)

// FeedbackList defaults to page 1, 50 per page when p leaves them unset.
func (c *Client) FeedbackList(ctx context.Context, p PageParams) (*Envelope[[]domain.Feedback], error) {
	if p.Page == nil {
		p.Page = Int(1)
	}
	if p.Limit == nil {
		p.Limit = Int(50)
	}
	return do[[]domain.Feedback](ctx, c, call{method: http.MethodGet, path: "/admin/feedback" + p.Encode()})
}

func (c *Client) SubmitFeedback(ctx context.Context, in domain.FeedbackInput) (*Envelope[domain.Feedback], error) {
	return do[domain.Feedback](ctx, c, call{method: http.MethodPost, path: "/feedback", body: in})
}

func (c *Client) DeleteFeedback(ctx context.Context, id string) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodDelete, path: "/admin/feedback/" + url.PathEscape(id)})
}

func (c *Client) DashboardStats(ctx context.Context) (*Envelope[domain.DashboardStats], error) {
	return do[domain.DashboardStats](ctx, c, call{method: http.MethodGet, path: "/admin/dashboard"})
}

// ClearCache asks the backend to drop its cache. Nothing is cached here.
func (c *Client) ClearCache(ctx context.Context) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodPost, path: "/admin/cache/clear"})
}
