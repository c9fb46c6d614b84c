package api

import (
	"context"
	"net/http"
	"net/url"

	"mobilestore/internal/domain"
)

func (c *Client) Categories(ctx context.Context) (*Envelope[[]domain.Category], error) {
	return do[[]domain.Category](ctx, c, call{method: http.MethodGet, path: "/categories"})
}

func (c *Client) Category(ctx context.Context, id string) (*Envelope[domain.Category], error) {
	return do[domain.Category](ctx, c, call{method: http.MethodGet, path: "/categories/" + url.PathEscape(id)})
}

func (c *Client) CreateCategory(ctx context.Context, in domain.CategoryInput) (*Envelope[domain.Category], error) {
	return do[domain.Category](ctx, c, call{method: http.MethodPost, path: "/categories", body: in})
}

func (c *Client) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (*Envelope[domain.Category], error) {
	return do[domain.Category](ctx, c, call{method: http.MethodPut, path: "/categories/" + url.PathEscape(id), body: in})
}

func (c *Client) DeleteCategory(ctx context.Context, id string) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodDelete, path: "/categories/" + url.PathEscape(id)})
}

func (c *Client) Brands(ctx context.Context) (*Envelope[[]domain.Brand], error) {
	return do[[]domain.Brand](ctx, c, call{method: http.MethodGet, path: "/brands"})
}

func (c *Client) Brand(ctx context.Context, id string) (*Envelope[domain.Brand], error) {
	return do[domain.Brand](ctx, c, call{method: http.MethodGet, path: "/brands/" + url.PathEscape(id)})
}

func (c *Client) CreateBrand(ctx context.Context, in domain.BrandInput) (*Envelope[domain.Brand], error) {
	return do[domain.Brand](ctx, c, call{method: http.MethodPost, path: "/brands", body: in})
}

func (c *Client) UpdateBrand(ctx context.Context, id string, in domain.BrandInput) (*Envelope[domain.Brand], error) {
	return do[domain.Brand](ctx, c, call{method: http.MethodPut, path: "/brands/" + url.PathEscape(id), body: in})
}

func (c *Client) DeleteBrand(ctx context.Context, id string) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodDelete, path: "/brands/" + url.PathEscape(id)})
}
