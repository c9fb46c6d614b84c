package services

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
)

const (
	homeSectionSize = 8
	relatedSize     = 4
)

// Sort modes for the catalog grid. SortFeatured keeps the server order.
const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
	SortName      = "name"
)

type CatalogService struct {
	API      *api.Client
	PageSize int
}

func NewCatalogService(client *api.Client, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &CatalogService{API: client, PageSize: pageSize}
}

type Home struct {
	Featured    []domain.Product
	Bestsellers []domain.Product
	New         []domain.Product
	Categories  []domain.Category
}

// Home loads the landing page sections concurrently. Any failing section
// fails the page.
func (s *CatalogService) Home(ctx context.Context) (Home, error) {
	var h Home
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		h.Featured, err = api.Data(s.API.FeaturedProducts(ctx, homeSectionSize))
		return err
	})
	g.Go(func() (err error) {
		h.Bestsellers, err = api.Data(s.API.BestsellerProducts(ctx, homeSectionSize))
		return err
	})
	g.Go(func() (err error) {
		h.New, err = api.Data(s.API.NewProducts(ctx, homeSectionSize))
		return err
	})
	g.Go(func() (err error) {
		h.Categories, err = s.Categories(ctx)
		return err
	})
	return h, g.Wait()
}

// Categories returns categories in display order.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	env, err := s.API.Categories(ctx)
	cats, err := api.Data(env, err)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].SortOrder < cats[j].SortOrder })
	return cats, nil
}

// Brands returns brands in display order.
func (s *CatalogService) Brands(ctx context.Context) ([]domain.Brand, error) {
	env, err := s.API.Brands(ctx)
	brands, err := api.Data(env, err)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(brands, func(i, j int) bool { return brands[i].SortOrder < brands[j].SortOrder })
	return brands, nil
}

type BrowseQuery struct {
	Page       int
	CategoryID string
	BrandID    string
	Q          string
	Sort       string
}

type BrowsePage struct {
	Products   []domain.Product
	Fetched    int
	Pagination *api.Pagination
	Categories []domain.Category
	Brands     []domain.Brand
}

// Browse fetches one catalog page with the filter lists. The name filter and
// the sort apply to the fetched page only.
func (s *CatalogService) Browse(ctx context.Context, q BrowseQuery) (BrowsePage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	var out BrowsePage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var env *api.Envelope[[]domain.Product]
		var err error
		page := api.PageParams{Page: api.Int(q.Page), Limit: api.Int(s.PageSize)}
		switch {
		case q.CategoryID != "" && q.BrandID == "":
			env, err = s.API.ProductsByCategory(gctx, q.CategoryID, page)
		case q.BrandID != "" && q.CategoryID == "":
			env, err = s.API.ProductsByBrand(gctx, q.BrandID, page)
		default:
			p := api.ProductListParams{Page: page.Page, Limit: page.Limit}
			if q.BrandID != "" {
				p.BrandID = api.String(q.BrandID)
			}
			if q.CategoryID != "" {
				p.CategoryID = api.String(q.CategoryID)
			}
			env, err = s.API.ListProducts(gctx, p)
		}
		products, err := api.Data(env, err)
		if err != nil {
			return err
		}
		out.Products = products
		out.Pagination = env.Pagination
		return nil
	})
	g.Go(func() (err error) {
		out.Categories, err = s.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Brands, err = s.Brands(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return BrowsePage{}, err
	}
	out.Fetched = len(out.Products)
	out.Products = SortProducts(FilterProducts(out.Products, q.Q, "", ""), q.Sort)
	return out, nil
}

// Product loads a product and its related list concurrently. Related
// products are bestsellers other than the product itself; failing to load
// them does not fail the page.
func (s *CatalogService) Product(ctx context.Context, id string) (domain.Product, []domain.Product, error) {
	var (
		p       domain.Product
		related []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = api.Data(s.API.Product(gctx, id))
		return err
	})
	g.Go(func() error {
		list, err := api.Data(s.API.BestsellerProducts(gctx, relatedSize+1))
		if err == nil {
			related = list
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Product{}, nil, err
	}
	kept := related[:0]
	for _, r := range related {
		if r.ID != p.ID && len(kept) < relatedSize {
			kept = append(kept, r)
		}
	}
	return p, kept, nil
}

// FilterProducts keeps products whose name contains q (case-insensitively)
// and that match the given brand and category ids, when set.
func FilterProducts(products []domain.Product, q, brandID, categoryID string) []domain.Product {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		if brandID != "" && p.BrandID() != brandID {
			continue
		}
		if categoryID != "" && p.CategoryID() != categoryID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortProducts orders a copy of products by mode. Unknown modes keep the
// input order.
func SortProducts(products []domain.Product, mode string) []domain.Product {
	out := append([]domain.Product(nil), products...)
	switch mode {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	case SortName:
		col := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool { return col.CompareString(out[i].Name, out[j].Name) < 0 })
	}
	return out
}
