package handlers

import (
	"context"
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/api"
	applog "mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

// TaxonomyHandler serves the category and brand admin pages, which share
// templates. Kind is "categories" or "brands".
type TaxonomyHandler struct {
	Kind string
}

// Row is one line of the shared list template.
type Row struct {
	ID, Name, Slug, Description, Image string
	IsActive                           bool
	SortOrder                          int
}

func (h *TaxonomyHandler) title() string {
	if h.Kind == "brands" {
		return "Brands"
	}
	return "Categories"
}

func (h *TaxonomyHandler) base() string { return "/admin/" + h.Kind }

func (h *TaxonomyHandler) rows(ctx context.Context, client *api.Client) ([]Row, error) {
	var rows []Row
	if h.Kind == "brands" {
		list, err := api.Data(client.Brands(ctx))
		if err != nil {
			return nil, err
		}
		for _, b := range list {
			rows = append(rows, Row{b.ID, b.Name, b.Slug, b.Description, b.LogoURL, b.IsActive, b.SortOrder})
		}
	} else {
		list, err := api.Data(client.Categories(ctx))
		if err != nil {
			return nil, err
		}
		for _, c := range list {
			rows = append(rows, Row{c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.IsActive, c.SortOrder})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SortOrder < rows[j].SortOrder })
	return rows, nil
}

// GET /admin/categories, /admin/brands
func (h *TaxonomyHandler) List(c *fiber.Ctx) error {
	rows, err := h.rows(c.UserContext(), sessionOf(c).Client())
	if err != nil {
		return fail(c, "admin."+h.Kind+".list.fail", err, "Could not load "+h.Kind)
	}
	return render(c, "admin_taxonomy", fiber.Map{"Title": h.title(), "Base": h.base(), "Rows": rows})
}

func (h *TaxonomyHandler) renderForm(c *fiber.Ctx, id string, f services.TaxonomyForm, err error) error {
	data := fiber.Map{"Title": h.title(), "Base": h.base(), "ID": id, "Form": f, "IsBrand": h.Kind == "brands"}
	if err != nil {
		data["Errors"] = fieldErrors(err)
		data["Err"] = userMessage(err, "Could not save")
	}
	return render(c, "admin_taxonomy_form", data)
}

// GET .../new
func (h *TaxonomyHandler) New(c *fiber.Ctx) error {
	return h.renderForm(c, "", services.TaxonomyForm{IsActive: true, SortOrder: "0"}, nil)
}

// GET .../:id/edit
func (h *TaxonomyHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Not found")
	}
	svc := services.NewTaxonomyService(sessionOf(c).Client())
	var (
		f   services.TaxonomyForm
		err error
	)
	if h.Kind == "brands" {
		b, berr := svc.Brand(c.UserContext(), id)
		f, err = services.BrandForm(b), berr
	} else {
		cat, cerr := svc.Category(c.UserContext(), id)
		f, err = services.CategoryForm(cat), cerr
	}
	if err != nil {
		return fail(c, "admin."+h.Kind+".form.fail", err, "Not found")
	}
	return h.renderForm(c, id, f, nil)
}

// POST /admin/categories and POST .../:id
func (h *TaxonomyHandler) Save(c *fiber.Ctx) error {
	id := c.Params("id")
	if id != "" {
		if _, ok := validate.ID(id); !ok {
			return notFound(c, "Not found")
		}
	}
	f := services.TaxonomyForm{
		Name:        c.FormValue("name"),
		Slug:        c.FormValue("slug"),
		Description: c.FormValue("description"),
		ImageURL:    c.FormValue("image_url"),
		WebsiteURL:  c.FormValue("website_url"),
		IsActive:    c.FormValue("is_active") == "true",
		SortOrder:   c.FormValue("sort_order"),
	}
	svc := services.NewTaxonomyService(sessionOf(c).Client())
	var (
		savedID string
		err     error
	)
	if h.Kind == "brands" {
		b, berr := svc.SaveBrand(c.UserContext(), id, f)
		savedID, err = b.ID, berr
	} else {
		cat, cerr := svc.SaveCategory(c.UserContext(), id, f)
		savedID, err = cat.ID, cerr
	}
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return fail(c, "admin."+h.Kind+".save.fail", err, "")
		}
		applog.Warn(c, "admin."+h.Kind+".save.fail", err, map[string]any{"id": id})
		c.Status(fiber.StatusUnprocessableEntity)
		return h.renderForm(c, id, f, err)
	}
	action := "admin." + h.Kind + ".create"
	if id != "" {
		action = "admin." + h.Kind + ".update"
	}
	applog.Audit(c, action, map[string]any{"id": savedID, "name": f.Name})
	return redirectWithFlash(c, h.base(), h.title()+" saved")
}

// POST .../:id/delete
func (h *TaxonomyHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("invalid id")
	}
	svc := services.NewTaxonomyService(sessionOf(c).Client())
	var err error
	if h.Kind == "brands" {
		err = svc.DeleteBrand(c.UserContext(), id)
	} else {
		err = svc.DeleteCategory(c.UserContext(), id)
	}
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.HTTPStatus != fiber.StatusNotFound {
			// e.g. still referenced by products
			return redirectWithFlash(c, h.base(), apiErr.Message)
		}
		return fail(c, "admin."+h.Kind+".delete.fail", err, "Not found")
	}
	applog.Audit(c, "admin."+h.Kind+".delete", map[string]any{"id": id})
	return redirectWithFlash(c, h.base(), "Deleted")
}
