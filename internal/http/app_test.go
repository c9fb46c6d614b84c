package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"mobilestore/internal/api"
	"mobilestore/internal/config"
	"mobilestore/internal/http/handlers"
	applog "mobilestore/internal/log"
	"mobilestore/internal/session"
	"mobilestore/internal/testutil"
	"mobilestore/internal/tokens"
)

// Store app wired like cmd/mobilestore, against the fake backend.
func newStoreApp(t *testing.T, loginMax int) (*fiber.App, *testutil.Backend) {
	t.Helper()
	be := testutil.NewBackend(t)
	cfg := config.Config{PageSize: 12, AdminPageSize: 20, SearchDebounce: 10 * time.Millisecond}
	client := api.New(be.URL, api.WithTimeout(5*time.Second))
	reg := session.NewRegistry(client, tokens.NewMemoryStore())

	engine := html.New("../../web/templates", ".html")
	engine.AddFuncMap(handlers.TemplateFuncs())
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 4 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
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
	app.Use(handlers.LoadSession(reg))

	deps := handlers.NewDeps(cfg, client, reg)
	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/products", deps.CatalogHandler.List)
	app.Get("/about", deps.CatalogHandler.About)
	app.Get("/product/:id", deps.ProductHandler.Detail)
	app.Get("/search", deps.SearchHandler.Page)
	app.Get("/search/suggest", deps.SearchHandler.Suggest)
	app.Get("/contact", deps.ContactHandler.Form)
	app.Post("/contact", deps.ContactHandler.Submit)

	app.Get("/admin/login", deps.AuthHandler.LoginForm)
	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        loginMax,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/admin/logout", deps.AuthHandler.Logout)

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
	for prefix, h := range map[string]*handlers.TaxonomyHandler{"/categories": deps.CategoryHandler, "/brands": deps.BrandHandler} {
		g := admin.Group(prefix)
		g.Get("/", h.List)
		g.Get("/new", h.New)
		g.Post("/", h.Save)
		g.Get("/:id/edit", h.Edit)
		g.Post("/:id", h.Save)
		g.Post("/:id/delete", h.Delete)
	}
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app, be
}

// browser replays cookies between requests the way a real one would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for k, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := b.app.Test(req, 5000)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	return b.do(httptest.NewRequest("GET", path, nil))
}

// post submits form with the current csrf token, fetching one first if needed.
func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	if b.cookies["csrf_"] == "" {
		b.get("/admin/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.cookies["csrf_"])
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(path, field, filename string, content []byte) *http.Response {
	b.t.Helper()
	if b.cookies["csrf_"] == "" {
		b.get("/admin/login")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("csrf", b.cookies["csrf_"])
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		b.t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func (b *browser) login() {
	b.t.Helper()
	resp := b.post("/admin/login", url.Values{"email": {testutil.AdminEmail}, "password": {testutil.AdminPassword}})
	if resp.StatusCode != http.StatusFound {
		b.t.Fatalf("login: expected redirect, got %d", resp.StatusCode)
	}
	if b.cookies["sid"] == "" {
		b.t.Fatal("login did not set a sid cookie")
	}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func expectRedirect(t *testing.T, resp *http.Response, prefix string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect to %s, got %d", prefix, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, prefix) {
		t.Fatalf("expected redirect to %s, got %q", prefix, loc)
	}
}

type logEntry struct {
	Level   string         `json:"level"`
	Action  string         `json:"action"`
	AdminID string         `json:"admin_id"`
	Fields  map[string]any `json:"fields"`
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
