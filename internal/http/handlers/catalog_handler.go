package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

var sortModes = []struct{ Value, Label string }{
	{services.SortFeatured, "Featured"},
	{services.SortPriceLow, "Price: Low to High"},
	{services.SortPriceHigh, "Price: High to Low"},
	{services.SortRating, "Highest Rated"},
	{services.SortName, "Name A-Z"},
}

func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	home, err := h.Catalog.Home(c.UserContext())
	if err != nil {
		return fail(c, "catalog.home.fail", err, "Could not load the store. Please retry.")
	}
	return render(c, "home", fiber.Map{
		"Featured": home.Featured, "Bestsellers": home.Bestsellers, "New": home.New, "Categories": home.Categories,
	})
}

func (h *CatalogHandler) About(c *fiber.Ctx) error {
	return render(c, "about", fiber.Map{})
}

// GET /products?category=&brand=&q=&sort=&page=
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	q := services.BrowseQuery{Page: validate.Page(c.Query("page")), Sort: c.Query("sort", services.SortFeatured)}
	var ok bool
	if q.CategoryID, ok = validate.OptionalID(c.Query("category")); !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return notFound(c, "Category not found")
	}
	if q.BrandID, ok = validate.OptionalID(c.Query("brand")); !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "brand"})
		return notFound(c, "Brand not found")
	}
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		if q.Q, ok = validate.Q(raw); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			q.Q = ""
		}
	}

	page, err := h.Catalog.Browse(c.UserContext(), q)
	if err != nil {
		return fail(c, "catalog.list.fail", err, "Could not load products. Please retry.")
	}
	return render(c, "products", fiber.Map{
		"Products": page.Products, "Shown": len(page.Products), "Fetched": page.Fetched,
		"Categories": page.Categories, "Brands": page.Brands, "SortModes": sortModes,
		"Query": q, "Pager": newPager(c, q.Page, page.Pagination),
	})
}
