package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"mobilestore/internal/api"
	"mobilestore/internal/debounce"
	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
)

const suggestionLimit = 5

type SearchService struct {
	API      *api.Client
	Debounce *debounce.Group
	PageSize int
}

func NewSearchService(client *api.Client, d *debounce.Group, pageSize int) *SearchService {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &SearchService{API: client, Debounce: d, PageSize: pageSize}
}

type SearchQuery struct {
	Q          string
	BrandID    string
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	SortBy     string
	SortOrder  string
	Page       int
}

type SearchPage struct {
	Products   []domain.Product
	Meta       api.SearchMetadata
	HasMeta    bool
	Pagination *api.Pagination
	Popular    []domain.PopularSearch
	Filters    domain.SearchFilters
}

var searchSorts = map[string]bool{"relevance": true, "price": true, "name": true, "rating": true, "date": true}

func (q SearchQuery) params(limit int) api.SearchParams {
	p := api.SearchParams{Page: api.Int(max(q.Page, 1)), Limit: api.Int(limit)}
	if q.Q != "" {
		p.Query = api.String(q.Q)
	}
	if q.BrandID != "" {
		p.BrandID = api.String(q.BrandID)
	}
	if q.CategoryID != "" {
		p.CategoryID = api.String(q.CategoryID)
	}
	p.MinPrice, p.MaxPrice = q.MinPrice, q.MaxPrice
	if q.InStock {
		p.InStock = api.Bool(true)
	}
	if searchSorts[q.SortBy] {
		p.SortBy = api.String(q.SortBy)
		if q.SortOrder == "asc" || q.SortOrder == "desc" {
			p.SortOrder = api.String(q.SortOrder)
		}
	}
	return p
}

// Search runs the query alongside the popular searches and filter lists.
// Without a query only the side panels are loaded. The side panels are
// optional: their failures are logged and leave them empty.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (SearchPage, error) {
	var out SearchPage
	g, gctx := errgroup.WithContext(ctx)
	if strings.TrimSpace(q.Q) != "" {
		g.Go(func() error {
			env, err := s.API.SearchProducts(gctx, q.params(s.PageSize))
			products, err := api.Data(env, err)
			if err != nil {
				return err
			}
			out.Products = products
			out.Pagination = env.Pagination
			out.Meta, out.HasMeta = env.SearchMeta()
			return nil
		})
	}
	g.Go(func() error {
		popular, err := api.Data(s.API.PopularSearches(gctx, 10))
		if err != nil {
			applog.Warn(nil, "search.popular.fail", err, nil)
			return nil
		}
		out.Popular = popular
		return nil
	})
	g.Go(func() error {
		filters, err := api.Data(s.API.SearchFilters(gctx))
		if err != nil {
			applog.Warn(nil, "search.filters.fail", err, nil)
			return nil
		}
		out.Filters = filters
		return nil
	})
	if err := g.Wait(); err != nil {
		return SearchPage{}, err
	}
	return out, nil
}

// Suggest returns name suggestions once typing under key has paused. A call
// replaced by a newer one for the same key returns debounce.ErrSuperseded.
func (s *SearchService) Suggest(ctx context.Context, key, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return []string{}, nil
	}
	var out []string
	err := s.Debounce.Do(ctx, key, func(ctx context.Context) error {
		list, err := api.Data(s.API.SearchSuggestions(ctx, q, suggestionLimit))
		out = list
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
