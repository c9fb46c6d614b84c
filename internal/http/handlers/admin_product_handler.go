package handlers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/importer"
	applog "mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

const maxImportSize = 2 << 20

type AdminProductHandler struct {
	PageSize int
}

func (h *AdminProductHandler) svc(c *fiber.Ctx) *services.ProductAdminService {
	return services.NewProductAdminService(sessionOf(c).Client())
}

var statuses = []domain.ProductStatus{domain.StatusActive, domain.StatusInactive, domain.StatusOutOfStock}

// GET /admin/products?q=&brand=&category=&status=&page=
func (h *AdminProductHandler) List(c *fiber.Ctx) error {
	q := services.AdminProductQuery{Page: validate.Page(c.Query("page")), Limit: h.PageSize}
	var ok bool
	if raw := c.Query("q"); raw != "" {
		if q.Q, ok = validate.Q(raw); !ok {
			q.Q = ""
		}
	}
	if q.BrandID, ok = validate.OptionalID(c.Query("brand")); !ok {
		q.BrandID = ""
	}
	if q.CategoryID, ok = validate.OptionalID(c.Query("category")); !ok {
		q.CategoryID = ""
	}
	if st, ok := validate.Status(c.Query("status")); ok {
		q.Status = string(st)
	}

	svc := h.svc(c)
	var (
		products []domain.Product
		pg       *api.Pagination
		brands   []domain.Brand
		cats     []domain.Category
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		products, pg, err = svc.List(ctx, q)
		return err
	})
	g.Go(func() (err error) {
		brands, cats, err = svc.FormOptions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(c, "admin.product.list.fail", err, "Could not load products")
	}
	return render(c, "admin_products", fiber.Map{
		"Products": products, "Brands": brands, "Categories": cats, "Statuses": statuses,
		"Query": q, "Pager": newPager(c, q.Page, pg),
	})
}

func (h *AdminProductHandler) renderForm(c *fiber.Ctx, id string, f services.ProductForm, brands []domain.Brand, cats []domain.Category, err error) error {
	data := fiber.Map{
		"ID": id, "Form": f, "Brands": brands, "Categories": cats, "Statuses": statuses,
		"SpecRows": f.SpecRows(),
	}
	if err != nil {
		data["Errors"] = fieldErrors(err)
		data["Err"] = userMessage(err, "Could not save the product")
	}
	return render(c, "admin_product_form", data)
}

// GET /admin/products/new
func (h *AdminProductHandler) New(c *fiber.Ctx) error {
	brands, cats, err := h.svc(c).FormOptions(c.UserContext())
	if err != nil {
		return fail(c, "admin.product.form.fail", err, "Could not load the form")
	}
	f := services.ProductForm{Status: string(domain.StatusActive), StockQuantity: "0"}
	return h.renderForm(c, "", f, brands, cats, nil)
}

// GET /admin/products/:id/edit
func (h *AdminProductHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	p, brands, cats, err := h.svc(c).Edit(c.UserContext(), id)
	if err != nil {
		return fail(c, "admin.product.form.fail", err, "Product not found")
	}
	return h.renderForm(c, id, services.FormFromProduct(p), brands, cats, nil)
}

func productForm(c *fiber.Ctx) services.ProductForm {
	args := c.Request().PostArgs()
	multi := func(key string) []string {
		var out []string
		for _, v := range args.PeekMulti(key) {
			out = append(out, string(v))
		}
		return out
	}
	return services.ProductForm{
		Name:             c.FormValue("name"),
		Price:            c.FormValue("price"),
		OriginalPrice:    c.FormValue("original_price"),
		StockQuantity:    c.FormValue("stock_quantity"),
		ShortDescription: c.FormValue("short_description"),
		Description:      c.FormValue("description"),
		Model:            c.FormValue("model"),
		SKU:              c.FormValue("sku"),
		BrandID:          c.FormValue("brand_id"),
		CategoryID:       c.FormValue("category_id"),
		Status:           c.FormValue("status"),
		IsFeatured:       c.FormValue("is_featured") == "true",
		IsBestseller:     c.FormValue("is_bestseller") == "true",
		IsNew:            c.FormValue("is_new") == "true",
		Images:           multi("images"),
		SpecKeys:         multi("spec_key"),
		SpecValues:       multi("spec_value"),
	}
}

// POST /admin/products and POST /admin/products/:id
func (h *AdminProductHandler) Save(c *fiber.Ctx) error {
	id := c.Params("id")
	if id != "" {
		if _, ok := validate.ID(id); !ok {
			return notFound(c, "Product not found")
		}
	}
	f := productForm(c)
	svc := h.svc(c)

	var (
		p   domain.Product
		err error
	)
	if id == "" {
		p, err = svc.Create(c.UserContext(), f)
	} else {
		p, err = svc.Update(c.UserContext(), id, f)
	}
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return fail(c, "admin.product.save.fail", err, "")
		}
		if fe := fieldErrors(err); fe != nil {
			applog.Security(c, "validation.fail", map[string]any{"form": "product", "fields": len(fe)})
		} else {
			applog.Error(c, "admin.product.save.fail", err, map[string]any{"product_id": id})
		}
		brands, cats, oerr := svc.FormOptions(c.UserContext())
		if oerr != nil {
			applog.Warn(c, "admin.product.form.options.fail", oerr, nil)
		}
		c.Status(fiber.StatusUnprocessableEntity)
		return h.renderForm(c, id, f, brands, cats, err)
	}

	if id == "" {
		applog.Audit(c, "admin.product.create", map[string]any{"product_id": p.ID, "name": p.Name})
		return redirectWithFlash(c, "/admin/products", "Product created successfully!")
	}
	applog.Audit(c, "admin.product.update", map[string]any{"product_id": id})
	return redirectWithFlash(c, "/admin/products", "Product updated successfully!")
}

// POST /admin/products/:id/delete
func (h *AdminProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("invalid id")
	}
	if err := h.svc(c).Delete(c.UserContext(), id); err != nil {
		return fail(c, "admin.product.delete.fail", err, "Product not found")
	}
	applog.Audit(c, "admin.product.delete", map[string]any{"product_id": id})
	return redirectWithFlash(c, "/admin/products", "Product deleted")
}

// POST /admin/products/:id/stock
func (h *AdminProductHandler) UpdateStock(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("invalid id")
	}
	qty := c.FormValue("stock_quantity")
	p, err := h.svc(c).UpdateStock(c.UserContext(), id, qty)
	if err != nil {
		if fieldErrors(err) != nil {
			applog.Security(c, "validation.fail", map[string]any{"field": "stock_quantity"})
			return redirectWithFlash(c, "/admin/products", "Stock must be a whole number of zero or more")
		}
		return fail(c, "admin.product.stock.fail", err, "Product not found")
	}
	applog.Audit(c, "admin.product.stock", map[string]any{"product_id": id, "qty": p.StockQuantity})
	return redirectWithFlash(c, "/admin/products", fmt.Sprintf("Stock for %s set to %d", p.Name, p.StockQuantity))
}

// GET /admin/products/example.csv
func (h *AdminProductHandler) ExampleCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := importer.WriteExample(&buf); err != nil {
		return fail(c, "admin.import.example.fail", err, "Could not build the example file")
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment("example_products.csv")
	return c.Send(buf.Bytes())
}

// POST /admin/products/import (multipart, field "file")
func (h *AdminProductHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return redirectWithFlash(c, "/admin/products", "Choose a CSV file to upload")
	}
	if fh.Size > maxImportSize {
		applog.Security(c, "admin.import.too_large", map[string]any{"size": fh.Size})
		return redirectWithFlash(c, "/admin/products", "The CSV file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "admin.import.fail", err, "Could not read the uploaded file")
	}
	defer f.Close()

	im := &importer.Importer{Client: sessionOf(c).Client()}
	res, err := im.Import(c.UserContext(), f)
	if errors.Is(err, api.ErrSessionExpired) {
		return fail(c, "admin.import.fail", err, "")
	}
	if err != nil {
		applog.Warn(c, "admin.import.fail", err, map[string]any{"success": res.Success, "failed": res.Failed})
		return redirectWithFlash(c, "/admin/products", "CSV parse error: "+err.Error())
	}
	applog.Audit(c, "admin.import.done", map[string]any{"success": res.Success, "failed": res.Failed})
	return redirectWithFlash(c, "/admin/products",
		fmt.Sprintf("Bulk upload finished: %d success, %d failed", res.Success, res.Failed))
}
