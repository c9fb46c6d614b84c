package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This product is no longer available")
	}
	p, related, err := h.Catalog.Product(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalog.product.fail", err, "This product is no longer available")
	}
	return render(c, "product", fiber.Map{"P": p, "Related": related})
}
