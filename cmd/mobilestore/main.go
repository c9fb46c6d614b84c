package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"mobilestore/internal/api"
	"mobilestore/internal/config"
	"mobilestore/internal/http/handlers"
	applog "mobilestore/internal/log"
	"mobilestore/internal/session"
	"mobilestore/internal/tokens"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := tokens.Open(ctx, tokens.Options{
		Kind:      cfg.TokenStore,
		DSN:       cfg.DBDSN,
		RedisAddr: cfg.RedisAddr,
		Secret:    cfg.TokenSecret,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	client := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout))
	reg := session.NewRegistry(client, store)
	go reg.Run(ctx, 5*time.Minute, 2*time.Hour)

	app := newApp(cfg, client, reg)

	go func() {
		<-ctx.Done()
		log.Printf("[server] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("[server] shutdown: %v", err)
		}
	}()

	log.Printf("[server] listening on :%s, backend %s", cfg.Port, client.BaseURL())
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg config.Config, client *api.Client, reg *session.Registry) *fiber.App {
	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.AddFuncMap(handlers.TemplateFuncs())
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		// room for CSV uploads; the import handler applies its own cap
		BodyLimit: 4 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and show a friendly message
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(string(c.Request().URI().Path()), "/static/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})
	// Attach the admin session (if any) for templates and guards
	app.Use(handlers.LoadSession(reg))

	app.Static("/static", "./web/static")

	deps := handlers.NewDeps(cfg, client, reg)

	// Public pages
	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/products", deps.CatalogHandler.List)
	app.Get("/about", deps.CatalogHandler.About)
	app.Get("/product", func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This item is no longer available"})
	})
	app.Get("/product/:id", deps.ProductHandler.Detail)
	app.Get("/search", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), deps.SearchHandler.Page)
	app.Get("/search/suggest", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|suggest"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.suggest.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.SearchHandler.Suggest)
	app.Get("/contact", deps.ContactHandler.Form)
	app.Post("/contact", limiter.New(limiter.Config{Max: 5, Expiration: 10 * time.Minute}), deps.ContactHandler.Submit)

	// Auth routes (login throttled); registered before the guarded group
	app.Get("/admin/login", deps.AuthHandler.LoginForm)
	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/admin/logout", deps.AuthHandler.Logout)

	// Admin
	admin := app.Group("/admin", handlers.RequireAdmin())
	admin.Get("/", deps.AdminHandler.Dashboard)
	admin.Post("/cache/clear", deps.AdminHandler.ClearCache)
	admin.Post("/feedback/:id/delete", deps.AdminHandler.DeleteFeedback)
	admin.Get("/feedback.csv", deps.AdminHandler.ExportFeedback)

	products := admin.Group("/products")
	products.Get("/", deps.AdminProductHandler.List)
	products.Get("/new", deps.AdminProductHandler.New)
	products.Get("/example.csv", deps.AdminProductHandler.ExampleCSV)
	products.Post("/import", deps.AdminProductHandler.Import)
	products.Post("/", deps.AdminProductHandler.Save)
	products.Get("/:id/edit", deps.AdminProductHandler.Edit)
	products.Post("/:id", deps.AdminProductHandler.Save)
	products.Post("/:id/delete", deps.AdminProductHandler.Delete)
	products.Post("/:id/stock", deps.AdminProductHandler.UpdateStock)

	for prefix, h := range map[string]*handlers.TaxonomyHandler{
		"/categories": deps.CategoryHandler,
		"/brands":     deps.BrandHandler,
	} {
		g := admin.Group(prefix)
		g.Get("/", h.List)
		g.Get("/new", h.New)
		g.Post("/", h.Save)
		g.Get("/:id/edit", h.Edit)
		g.Post("/:id", h.Save)
		g.Post("/:id/delete", h.Delete)
	}

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app
}
