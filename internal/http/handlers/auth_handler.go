package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mobilestore/internal/log"
	"mobilestore/internal/session"
	"mobilestore/internal/validate"
)

type AuthHandler struct {
	Sessions *session.Registry
}

func setSID(c *fiber.Ctx, sid string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  expires,
	})
}

// safeNext only follows redirects back into the admin area.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/admin") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return "/admin"
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if c.Locals("user") != nil {
		return c.Redirect(safeNext(c.Query("next")))
	}
	return render(c, "login", fiber.Map{"Err": "", "Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	next := c.FormValue("next")
	if _, ok := validate.Email(email); !ok || pass == "" || len(pass) > 128 {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Err": "Invalid email or password", "Email": email, "Next": next, "CSRFToken": c.Cookies("csrf_"),
		})
	}

	// every login gets a fresh sid; a cookie sent by the client is never promoted
	sid := uuid.NewString()
	m := h.Sessions.Get(sid)
	u, err := m.Login(c.UserContext(), strings.TrimSpace(email), pass)
	if err != nil {
		h.Sessions.Forget(sid)
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Err": userMessage(err, "Invalid email or password"), "Email": email, "Next": next, "CSRFToken": c.Cookies("csrf_"),
		})
	}

	if old := c.Cookies("sid"); old != "" {
		if err := h.Sessions.Discard(c.UserContext(), old); err != nil {
			log.Error(c, "auth.session.discard.fail", err, nil)
		}
	}
	setSID(c, sid, time.Time{})
	c.Locals("session", m)
	c.Locals("user", u)
	log.Audit(c, "auth.login.success", map[string]any{"email": u.Email, "role": u.Role})
	return c.Redirect(safeNext(next))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if m := sessionOf(c); m != nil {
		if err := m.Logout(c.UserContext()); err != nil {
			log.Error(c, "auth.logout.clear.fail", err, nil)
		}
	}
	if sid != "" {
		h.Sessions.Forget(sid)
	}
	setSID(c, "", time.Now().Add(-1*time.Hour))
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}
