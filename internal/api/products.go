package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"mobilestore/internal/domain"
)

func productPath(id string) string { return "/products/" + url.PathEscape(id) }

func (c *Client) ListProducts(ctx context.Context, p ProductListParams) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: "/products" + p.Encode()})
}

// AllProducts fetches the unfiltered list, capped at limit.
func (c *Client) AllProducts(ctx context.Context, limit int) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: fmt.Sprintf("/products/all?limit=%d", limit)})
}

func (c *Client) SearchProducts(ctx context.Context, p SearchParams) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: "/products/search" + p.Encode()})
}

func (c *Client) Product(ctx context.Context, id string) (*Envelope[domain.Product], error) {
	return do[domain.Product](ctx, c, call{method: http.MethodGet, path: productPath(id)})
}

func (c *Client) FeaturedProducts(ctx context.Context, limit int) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: fmt.Sprintf("/products/featured?limit=%d", limit)})
}

func (c *Client) BestsellerProducts(ctx context.Context, limit int) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: fmt.Sprintf("/products/bestsellers?limit=%d", limit)})
}

func (c *Client) NewProducts(ctx context.Context, limit int) (*Envelope[[]domain.Product], error) {
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: fmt.Sprintf("/products/new?limit=%d", limit)})
}

func (c *Client) ProductsByCategory(ctx context.Context, categoryID string, p PageParams) (*Envelope[[]domain.Product], error) {
	path := "/products/category/" + url.PathEscape(categoryID) + p.Encode()
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: path})
}

func (c *Client) ProductsByBrand(ctx context.Context, brandID string, p PageParams) (*Envelope[[]domain.Product], error) {
	path := "/products/brand/" + url.PathEscape(brandID) + p.Encode()
	return do[[]domain.Product](ctx, c, call{method: http.MethodGet, path: path})
}

func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (*Envelope[domain.Product], error) {
	return do[domain.Product](ctx, c, call{method: http.MethodPost, path: "/products", body: in})
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*Envelope[domain.Product], error) {
	return do[domain.Product](ctx, c, call{method: http.MethodPut, path: productPath(id), body: in})
}

func (c *Client) DeleteProduct(ctx context.Context, id string) (*Envelope[any], error) {
	return do[any](ctx, c, call{method: http.MethodDelete, path: productPath(id)})
}

func (c *Client) UpdateProductStock(ctx context.Context, id string, quantity int) (*Envelope[domain.Product], error) {
	body := map[string]int{"stock_quantity": quantity}
	return do[domain.Product](ctx, c, call{method: http.MethodPatch, path: productPath(id) + "/stock", body: body})
}
