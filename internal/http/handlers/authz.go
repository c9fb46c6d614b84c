package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
	"mobilestore/internal/session"
)

// LoadSession attaches the session for the sid cookie, restoring the admin
// from stored tokens on its first request.
func LoadSession(reg *session.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			m := reg.Get(sid)
			m.Initialize(c.UserContext())
			c.Locals("session", m)
			if u := m.CurrentUser(); u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

func sessionOf(c *fiber.Ctx) *session.Manager {
	m, _ := c.Locals("session").(*session.Manager)
	return m
}

// RequireAdmin sends visitors without an admin session to the login form.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, _ := c.Locals("user").(*domain.AdminUser)
		if u == nil || sessionOf(c) == nil {
			return c.Redirect("/admin/login?next=" + url.QueryEscape(c.OriginalURL()))
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"role": u.Role})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}
