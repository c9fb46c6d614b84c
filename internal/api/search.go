package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"mobilestore/internal/domain"
)

func (c *Client) SearchSuggestions(ctx context.Context, q string, limit int) (*Envelope[[]string], error) {
	path := fmt.Sprintf("/products/search/suggestions?query=%s&limit=%d", url.QueryEscape(q), limit)
	return do[[]string](ctx, c, call{method: http.MethodGet, path: path})
}

func (c *Client) PopularSearches(ctx context.Context, limit int) (*Envelope[[]domain.PopularSearch], error) {
	path := fmt.Sprintf("/products/search/popular?limit=%d", limit)
	return do[[]domain.PopularSearch](ctx, c, call{method: http.MethodGet, path: path})
}

func (c *Client) SearchFilters(ctx context.Context) (*Envelope[domain.SearchFilters], error) {
	return do[domain.SearchFilters](ctx, c, call{method: http.MethodGet, path: "/products/search/filters"})
}
