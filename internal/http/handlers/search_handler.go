package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/debounce"
	"mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

type SearchHandler struct {
	Search *services.SearchService
}

var searchSortModes = []struct{ Value, Label string }{
	{"relevance", "Relevance"}, {"price", "Price"}, {"name", "Name"}, {"rating", "Rating"}, {"date", "Newest"},
}

func (h *SearchHandler) Page(c *fiber.Ctx) error {
	q := services.SearchQuery{
		Page:      validate.Page(c.Query("page")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		InStock:   c.Query("in_stock") == "true",
	}
	data := fiber.Map{"Query": &q, "SortModes": searchSortModes}
	invalid := func(field, msg string) error {
		log.Security(c, "validation.fail", map[string]any{"field": field})
		data["Err"] = msg
		c.Status(fiber.StatusBadRequest)
		return render(c, "search", data)
	}

	var ok bool
	if rawQ := c.Query("q"); strings.TrimSpace(rawQ) != "" {
		if q.Q, ok = validate.Q(rawQ); !ok {
			q.Q = ""
			return invalid("q", "Enter a valid keyword (letters and numbers only)")
		}
	}
	if q.BrandID, ok = validate.OptionalID(c.Query("brand")); !ok {
		q.BrandID = ""
		return invalid("brand", "Invalid filter")
	}
	if q.CategoryID, ok = validate.OptionalID(c.Query("category")); !ok {
		q.CategoryID = ""
		return invalid("category", "Invalid filter")
	}
	if q.MinPrice, ok = validate.OptionalPrice(c.Query("min_price")); !ok {
		return invalid("min_price", "Invalid price range")
	}
	if q.MaxPrice, ok = validate.OptionalPrice(c.Query("max_price")); !ok {
		return invalid("max_price", "Invalid price range")
	}

	page, err := h.Search.Search(c.UserContext(), q)
	if err != nil {
		return fail(c, "search.error", err, "Could not load results. Please retry.")
	}
	data["Products"] = page.Products
	data["Count"] = len(page.Products)
	data["Popular"] = page.Popular
	data["Filters"] = page.Filters
	if page.HasMeta {
		data["Meta"] = page.Meta
	}
	data["Pager"] = newPager(c, q.Page, page.Pagination)
	return render(c, "search", data)
}

// GET /search/suggest?q= returns {"suggestions": [...]}. A request replaced
// by a newer one from the same visitor answers 204.
func (h *SearchHandler) Suggest(c *fiber.Ctx) error {
	raw := c.Query("q")
	q, ok := validate.Q(raw)
	if !ok {
		return c.JSON(fiber.Map{"suggestions": []string{}})
	}
	key := c.Cookies("sid")
	if key == "" {
		key = c.IP()
	}
	list, err := h.Search.Suggest(c.UserContext(), key, q)
	if errors.Is(err, debounce.ErrSuperseded) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err != nil {
		log.Warn(c, "search.suggest.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "suggestions unavailable"})
	}
	return c.JSON(fiber.Map{"suggestions": list})
}
