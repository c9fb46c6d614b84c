package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/api"
	applog "mobilestore/internal/log"
	"mobilestore/internal/services"
)

const flashCookie = "flash"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	if raw := c.Cookies(flashCookie); raw != "" {
		if msg, err := url.QueryUnescape(raw); err == nil {
			if _, ok := data["Msg"]; !ok {
				data["Msg"] = msg
			}
		}
		c.ClearCookie(flashCookie)
	}
	return c.Render(tmpl, data)
}

// redirectWithFlash carries msg to the next rendered page.
func redirectWithFlash(c *fiber.Ctx, to, msg string) error {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(time.Minute),
	})
	return c.Redirect(to)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// fail renders a friendly page for err. An expired session sends admins
// back to the login form; a backend 404 becomes a not-found page.
func fail(c *fiber.Ctx, action string, err error, msg string) error {
	if errors.Is(err, api.ErrSessionExpired) {
		applog.Security(c, "session.expired", nil)
		return redirectWithFlash(c, "/admin/login?next="+url.QueryEscape(c.OriginalURL()), "Your session has expired. Please sign in again.")
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatus == fiber.StatusNotFound {
		return notFound(c, msg)
	}
	applog.Error(c, action, err, nil)
	status := fiber.StatusInternalServerError
	if errors.Is(err, api.ErrNetwork) {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}

// userMessage is the text shown for a failed form submission.
func userMessage(err error, fallback string) string {
	var fe services.FieldErrors
	var apiErr *api.Error
	switch {
	case errors.As(err, &fe):
		return "Please correct the highlighted fields."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, api.ErrNetwork):
		return "Could not reach the store service. Please try again."
	}
	return fallback
}

func fieldErrors(err error) services.FieldErrors {
	var fe services.FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// Pager drives the prev/next links of a paged list.
type Pager struct {
	Page       int
	TotalPages int
	Total      int
	PrevURL    string
	NextURL    string
}

func newPager(c *fiber.Ctx, page int, p *api.Pagination) *Pager {
	if p == nil {
		return nil
	}
	pg := &Pager{Page: page, TotalPages: p.TotalPages, Total: p.Total}
	link := func(n int) string {
		q := url.Values{}
		c.Context().QueryArgs().VisitAll(func(k, v []byte) {
			q.Set(string(k), string(v))
		})
		q.Set("page", strconv.Itoa(n))
		return c.Path() + "?" + q.Encode()
	}
	if page > 1 {
		pg.PrevURL = link(page - 1)
	}
	if page < p.TotalPages {
		pg.NextURL = link(page + 1)
	}
	return pg
}

// TemplateFuncs are registered on the view engine.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"moneyp": func(v *float64) string {
			if v == nil {
				return ""
			}
			return fmt.Sprintf("$%.2f", *v)
		},
		"stars": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
		"add":   func(a, b int) int { return a + b },
		"date": func(s string) string {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return s
			}
			return t.Format("Jan 2, 2006 15:04")
		},
	}
}
