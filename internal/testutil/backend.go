// Package testutil provides an in-process stand-in for the storefront backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mobilestore/internal/domain"
)

const (
	AdminEmail    = "admin@store.test"
	AdminPassword = "Passw0rd!"
)

// Request is one call seen by the backend.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

// Backend serves the JSON envelope API from memory. Access tokens are real
// HS256 JWTs; only tokens it issued and has not revoked are accepted.
type Backend struct {
	URL string

	srv    *httptest.Server
	mux    *http.ServeMux
	secret []byte

	mu          sync.Mutex
	requests    []Request
	access      map[string]bool
	refresh     map[string]bool
	failRefresh bool
	refreshWait time.Duration
	overrides   map[string]http.HandlerFunc
	nextID      int

	Admin      domain.AdminUser
	Products   []domain.Product
	Categories []domain.Category
	Brands     []domain.Brand
	Feedback   []domain.Feedback
}

// NewBackend starts a seeded backend that is closed with the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		mux:       http.NewServeMux(),
		secret:    []byte("test-secret-" + uuid.NewString()),
		access:    map[string]bool{},
		refresh:   map[string]bool{},
		overrides: map[string]http.HandlerFunc{},
		nextID:    100,
		Admin: domain.AdminUser{
			ID: "a1", Email: AdminEmail, FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin,
		},
	}
	b.seed()
	b.routes()
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	b.URL = b.srv.URL
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) seed() {
	phones := domain.Category{ID: "c1", Name: "Phones", Slug: "phones", IsActive: true, SortOrder: 1}
	tablets := domain.Category{ID: "c2", Name: "Tablets", Slug: "tablets", IsActive: true, SortOrder: 2}
	google := domain.Brand{ID: "b1", Name: "Google", Slug: "google", IsActive: true, SortOrder: 2}
	samsung := domain.Brand{ID: "b2", Name: "Samsung", Slug: "samsung", IsActive: true, SortOrder: 1}
	b.Categories = []domain.Category{tablets, phones}
	b.Brands = []domain.Brand{google, samsung}

	orig := 999.0
	b.Products = []domain.Product{
		{ID: "p1", Name: "Pixel 9", Slug: "pixel-9", Brand: &google, Category: &phones, Price: 799, OriginalPrice: &orig,
			DiscountPercentage: 20, DiscountAmount: 200, StockQuantity: 5, InStock: true, Status: domain.StatusActive,
			IsFeatured: true, AverageRating: 4.5, Images: []string{"https://img.test/p1.jpg"},
			Specifications: domain.Specs{"RAM": "12GB", "Display": "6.3\""}},
		{ID: "p2", Name: "Galaxy S24", Slug: "galaxy-s24", Brand: &samsung, Category: &phones, Price: 899,
			StockQuantity: 3, InStock: true, Status: domain.StatusActive, IsBestseller: true, AverageRating: 4.8},
		{ID: "p3", Name: "Budget Phone", Slug: "budget-phone", Price: 199, Status: domain.StatusOutOfStock,
			IsNew: true, IsBestseller: true, AverageRating: 3.1},
		{ID: "p4", Name: "Galaxy Tab", Slug: "galaxy-tab", Brand: &samsung, Category: &tablets, Price: 499,
			StockQuantity: 8, InStock: true, Status: domain.StatusActive, IsBestseller: true, AverageRating: 4.2},
	}
	b.Feedback = []domain.Feedback{
		{ID: "f1", Name: "Jo", Email: "jo@example.com", Subject: "Hello", Message: "Line one\nline two", CreatedAt: "2025-01-02T10:00:00Z"},
	}
}

// View runs fn with the backend state locked, for reading Products,
// Categories, Brands or Feedback from a test.
func (b *Backend) View(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// Requests returns a copy of everything received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Hits counts requests matching method and path.
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method and path.
func (b *Backend) Last(method, path string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if r := b.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return Request{}, false
}

// FailRefresh makes /auth/refresh reject every token.
func (b *Backend) FailRefresh(v bool) {
	b.mu.Lock()
	b.failRefresh = v
	b.mu.Unlock()
}

// SlowRefresh delays refresh responses so concurrent callers overlap.
func (b *Backend) SlowRefresh(d time.Duration) {
	b.mu.Lock()
	b.refreshWait = d
	b.mu.Unlock()
}

// RevokeAccess invalidates every issued access token server side while the
// tokens themselves stay unexpired.
func (b *Backend) RevokeAccess() {
	b.mu.Lock()
	b.access = map[string]bool{}
	b.mu.Unlock()
}

// UpdateAdmin edits the profile served by /auth/profile.
func (b *Backend) UpdateAdmin(fn func(*domain.AdminUser)) {
	b.mu.Lock()
	fn(&b.Admin)
	b.mu.Unlock()
}

// Override replaces the handler for "METHOD /path".
func (b *Backend) Override(route string, h http.HandlerFunc) {
	b.mu.Lock()
	b.overrides[route] = h
	b.mu.Unlock()
}

// Token signs an access token for the admin expiring after ttl. A token with
// a negative ttl is already expired.
func (b *Backend) Token(ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": b.Admin.ID,
		"jti": uuid.NewString(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	b.access[s] = true
	b.mu.Unlock()
	return s
}

// IssuePair returns a valid access/refresh pair.
func (b *Backend) IssuePair() domain.TokenPair {
	rt := "rt-" + uuid.NewString()
	b.mu.Lock()
	b.refresh[rt] = true
	b.mu.Unlock()
	return domain.TokenPair{AccessToken: b.Token(time.Hour), RefreshToken: rt, ExpiresIn: "1h"}
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery,
		Auth: r.Header.Get("Authorization"), Body: body,
	})
	h := b.overrides[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if h != nil {
		h(w, r)
		return
	}
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) routes() {
	m := b.mux
	m.HandleFunc("POST /auth/login", b.login)
	m.HandleFunc("POST /auth/refresh", b.refreshTokens)
	m.HandleFunc("POST /auth/logout", b.authed(func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil, "Logged out")
	}))
	m.HandleFunc("GET /auth/profile", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		u := b.Admin
		b.mu.Unlock()
		ok(w, u, "")
	}))

	m.HandleFunc("GET /products", b.listProducts)
	m.HandleFunc("GET /products/all", b.allProducts)
	m.HandleFunc("GET /products/search", b.searchProducts)
	m.HandleFunc("GET /products/search/suggestions", b.suggestions)
	m.HandleFunc("GET /products/search/popular", func(w http.ResponseWriter, r *http.Request) {
		ok(w, []domain.PopularSearch{{Query: "pixel", Count: 12}, {Query: "galaxy", Count: 7}}, "")
	})
	m.HandleFunc("GET /products/search/filters", func(w http.ResponseWriter, r *http.Request) {
		max := 300.0
		b.mu.Lock()
		f := domain.SearchFilters{Categories: b.Categories, Brands: b.Brands, PriceRanges: []domain.PriceRange{
			{Label: "Under $300", Min: 0, Max: &max}, {Label: "$300 and up", Min: 300},
		}}
		b.mu.Unlock()
		ok(w, f, "")
	})
	m.HandleFunc("GET /products/featured", b.flagged(func(p domain.Product) bool { return p.IsFeatured }))
	m.HandleFunc("GET /products/bestsellers", b.flagged(func(p domain.Product) bool { return p.IsBestseller }))
	m.HandleFunc("GET /products/new", b.flagged(func(p domain.Product) bool { return p.IsNew }))
	m.HandleFunc("GET /products/category/{id}", b.byRef(func(p domain.Product, id string) bool { return p.CategoryID() == id }))
	m.HandleFunc("GET /products/brand/{id}", b.byRef(func(p domain.Product, id string) bool { return p.BrandID() == id }))
	m.HandleFunc("GET /products/{id}", b.getProduct)
	m.HandleFunc("POST /products", b.authed(b.createProduct))
	m.HandleFunc("PUT /products/{id}", b.authed(b.updateProduct))
	m.HandleFunc("DELETE /products/{id}", b.authed(b.deleteProduct))
	m.HandleFunc("PATCH /products/{id}/stock", b.authed(b.updateStock))

	m.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ok(w, b.Categories, "")
	})
	m.HandleFunc("GET /categories/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range b.Categories {
			if c.ID == r.PathValue("id") {
				ok(w, c, "")
				return
			}
		}
		fail(w, http.StatusNotFound, "Category not found")
	})
	m.HandleFunc("POST /categories", b.authed(b.saveCategory))
	m.HandleFunc("PUT /categories/{id}", b.authed(b.saveCategory))
	m.HandleFunc("DELETE /categories/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.Categories {
			if c.ID == r.PathValue("id") {
				b.Categories = append(b.Categories[:i], b.Categories[i+1:]...)
				ok(w, nil, "Category deleted")
				return
			}
		}
		fail(w, http.StatusNotFound, "Category not found")
	}))

	m.HandleFunc("GET /brands", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ok(w, b.Brands, "")
	})
	m.HandleFunc("GET /brands/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, br := range b.Brands {
			if br.ID == r.PathValue("id") {
				ok(w, br, "")
				return
			}
		}
		fail(w, http.StatusNotFound, "Brand not found")
	})
	m.HandleFunc("POST /brands", b.authed(b.saveBrand))
	m.HandleFunc("PUT /brands/{id}", b.authed(b.saveBrand))
	m.HandleFunc("DELETE /brands/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, br := range b.Brands {
			if br.ID == r.PathValue("id") {
				b.Brands = append(b.Brands[:i], b.Brands[i+1:]...)
				ok(w, nil, "Brand deleted")
				return
			}
		}
		fail(w, http.StatusNotFound, "Brand not found")
	}))

	m.HandleFunc("POST /feedback", b.submitFeedback)
	m.HandleFunc("GET /admin/feedback", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ok(w, b.Feedback, "")
	}))
	m.HandleFunc("DELETE /admin/feedback/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, f := range b.Feedback {
			if f.ID == r.PathValue("id") {
				b.Feedback = append(b.Feedback[:i], b.Feedback[i+1:]...)
				ok(w, nil, "Feedback deleted")
				return
			}
		}
		fail(w, http.StatusNotFound, "Feedback not found")
	}))
	m.HandleFunc("GET /admin/dashboard", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ok(w, domain.DashboardStats{
			TotalProducts: len(b.Products), TotalCategories: len(b.Categories), TotalBrands: len(b.Brands),
			CacheStats:      domain.CacheStats{TotalEntries: 10, ActiveEntries: 8, ExpiredEntries: 2},
			PopularSearches: []domain.PopularSearch{{Query: "pixel", Count: 12}},
		}, "")
	}))
	m.HandleFunc("POST /admin/cache/clear", b.authed(func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil, "Cache cleared")
	}))
}

func write(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any, msg string) {
	env := map[string]any{"status": "success", "message": msg}
	if data != nil {
		env["data"] = data
	}
	write(w, http.StatusOK, env)
}

func fail(w http.ResponseWriter, code int, msg string) {
	write(w, code, map[string]any{"status": "error", "message": msg})
}

// authed admits requests carrying an issued, unexpired access token.
func (b *Backend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || raw == "" {
			fail(w, http.StatusUnauthorized, "Access token required")
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return b.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		b.mu.Lock()
		known := b.access[raw]
		b.mu.Unlock()
		if err != nil || !known {
			fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		h(w, r)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginData
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Email != AdminEmail || in.Password != AdminPassword {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.mu.Lock()
	admin := b.Admin
	b.mu.Unlock()
	ok(w, domain.AuthResponse{Admin: admin, Tokens: b.IssuePair()}, "Login successful")
}

func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	wait := b.refreshWait
	valid := b.refresh[in.RefreshToken] && !b.failRefresh
	if valid {
		delete(b.refresh, in.RefreshToken)
	}
	b.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	if !valid {
		fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	ok(w, map[string]any{"tokens": b.IssuePair()}, "Token refreshed")
}

func intParam(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (b *Backend) paged(w http.ResponseWriter, r *http.Request, items []domain.Product, meta any) {
	page, limit := intParam(r, "page", 1), intParam(r, "limit", 20)
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	env := map[string]any{
		"status": "success",
		"data":   items[start:end],
		"pagination": map[string]int{
			"page": page, "limit": limit, "total": total, "totalPages": (total + limit - 1) / limit,
		},
	}
	if meta != nil {
		env["metadata"] = meta
	}
	write(w, http.StatusOK, env)
}

func (b *Backend) filter(keep func(domain.Product) bool) []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Product{}
	for _, p := range b.Products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func matchesRefs(p domain.Product, q map[string][]string) bool {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	if id := get("brand_id"); id != "" && p.BrandID() != id {
		return false
	}
	if id := get("category_id"); id != "" && p.CategoryID() != id {
		return false
	}
	if s := get("status"); s != "" && string(p.Status) != s {
		return false
	}
	if get("is_featured") == "true" && !p.IsFeatured {
		return false
	}
	return true
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.paged(w, r, b.filter(func(p domain.Product) bool { return matchesRefs(p, q) }), nil)
}

func (b *Backend) allProducts(w http.ResponseWriter, r *http.Request) {
	items := b.filter(func(domain.Product) bool { return true })
	if n := intParam(r, "limit", len(items)); n < len(items) {
		items = items[:n]
	}
	ok(w, items, "")
}

func (b *Backend) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.ToLower(q.Get("query"))
	items := b.filter(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), term) && matchesRefs(p, q)
	})
	if q.Get("sort_by") == "price" {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price < items[j].Price })
	}
	page, limit := intParam(r, "page", 1), intParam(r, "limit", 20)
	meta := map[string]any{
		"query": q.Get("query"), "totalResults": len(items), "searchTime": 3.5,
		"hasNext": page*limit < len(items), "hasPrevious": page > 1,
	}
	b.paged(w, r, items, meta)
}

func (b *Backend) suggestions(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(r.URL.Query().Get("query"))
	limit := intParam(r, "limit", 5)
	out := []string{}
	for _, p := range b.filter(func(p domain.Product) bool { return strings.Contains(strings.ToLower(p.Name), term) }) {
		if len(out) == limit {
			break
		}
		out = append(out, p.Name)
	}
	ok(w, out, "")
}

func (b *Backend) flagged(keep func(domain.Product) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := b.filter(keep)
		if n := intParam(r, "limit", len(items)); n < len(items) {
			items = items[:n]
		}
		ok(w, items, "")
	}
}

func (b *Backend) byRef(match func(domain.Product, string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.paged(w, r, b.filter(func(p domain.Product) bool { return match(p, id) }), nil)
	}
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	items := b.filter(func(p domain.Product) bool { return p.ID == r.PathValue("id") })
	if len(items) == 0 {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	ok(w, items[0], "")
}

// apply copies an input onto p, resolving brand and category ids.
func (b *Backend) apply(p *domain.Product, in domain.ProductInput) {
	p.Name, p.Price, p.OriginalPrice = in.Name, in.Price, in.OriginalPrice
	p.StockQuantity, p.InStock = in.StockQuantity, in.StockQuantity > 0
	p.ShortDescription, p.Description, p.Model = in.ShortDescription, in.Description, in.Model
	p.Status, p.IsFeatured, p.IsBestseller, p.IsNew = in.Status, in.IsFeatured, in.IsBestseller, in.IsNew
	p.Images, p.Specifications = in.Images, domain.Specs(in.Specifications)
	if in.SKU != nil {
		p.SKU = *in.SKU
	}
	p.Brand, p.Category = nil, nil
	for i := range b.Brands {
		if in.BrandID != nil && b.Brands[i].ID == *in.BrandID {
			br := b.Brands[i]
			p.Brand = &br
		}
	}
	for i := range b.Categories {
		if in.CategoryID != nil && b.Categories[i].ID == *in.CategoryID {
			c := b.Categories[i]
			p.Category = &c
		}
	}
}

func (b *Backend) createProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" || in.Price <= 0 {
		fail(w, http.StatusBadRequest, "Validation failed")
		return
	}
	b.mu.Lock()
	b.nextID++
	p := domain.Product{ID: fmt.Sprintf("p%d", b.nextID)}
	b.apply(&p, in)
	b.Products = append(b.Products, p)
	b.mu.Unlock()
	write(w, http.StatusCreated, map[string]any{"status": "success", "data": p, "message": "Product created"})
}

func (b *Backend) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Products {
		if b.Products[i].ID == r.PathValue("id") {
			b.apply(&b.Products[i], in)
			ok(w, b.Products[i], "Product updated")
			return
		}
	}
	fail(w, http.StatusNotFound, "Product not found")
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.Products {
		if p.ID == r.PathValue("id") {
			b.Products = append(b.Products[:i], b.Products[i+1:]...)
			ok(w, nil, "Product deleted")
			return
		}
	}
	fail(w, http.StatusNotFound, "Product not found")
}

func (b *Backend) updateStock(w http.ResponseWriter, r *http.Request) {
	var in struct {
		StockQuantity *int `json:"stock_quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.StockQuantity == nil || *in.StockQuantity < 0 {
		fail(w, http.StatusBadRequest, "Invalid stock quantity")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Products {
		if b.Products[i].ID == r.PathValue("id") {
			b.Products[i].StockQuantity = *in.StockQuantity
			b.Products[i].InStock = *in.StockQuantity > 0
			ok(w, b.Products[i], "Stock updated")
			return
		}
	}
	fail(w, http.StatusNotFound, "Product not found")
}

func (b *Backend) saveCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		fail(w, http.StatusBadRequest, "Name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := domain.Category{Name: in.Name, Slug: in.Slug, Description: in.Description, ImageURL: in.ImageURL,
		IsActive: in.IsActive, SortOrder: in.SortOrder}
	if id := r.PathValue("id"); id != "" {
		for i := range b.Categories {
			if b.Categories[i].ID == id {
				c.ID = id
				b.Categories[i] = c
				ok(w, c, "Category updated")
				return
			}
		}
		fail(w, http.StatusNotFound, "Category not found")
		return
	}
	b.nextID++
	c.ID = fmt.Sprintf("c%d", b.nextID)
	b.Categories = append(b.Categories, c)
	ok(w, c, "Category created")
}

func (b *Backend) saveBrand(w http.ResponseWriter, r *http.Request) {
	var in domain.BrandInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		fail(w, http.StatusBadRequest, "Name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	br := domain.Brand{Name: in.Name, Slug: in.Slug, Description: in.Description, LogoURL: in.LogoURL,
		WebsiteURL: in.WebsiteURL, IsActive: in.IsActive, SortOrder: in.SortOrder}
	if id := r.PathValue("id"); id != "" {
		for i := range b.Brands {
			if b.Brands[i].ID == id {
				br.ID = id
				b.Brands[i] = br
				ok(w, br, "Brand updated")
				return
			}
		}
		fail(w, http.StatusNotFound, "Brand not found")
		return
	}
	b.nextID++
	br.ID = fmt.Sprintf("b%d", b.nextID)
	b.Brands = append(b.Brands, br)
	ok(w, br, "Brand created")
}

func (b *Backend) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var in domain.FeedbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Email == "" || in.Message == "" {
		fail(w, http.StatusBadRequest, "Validation failed")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	f := domain.Feedback{ID: fmt.Sprintf("f%d", b.nextID), Name: in.Name, Email: in.Email, Phone: in.Phone,
		Subject: in.Subject, Message: in.Message, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	b.Feedback = append(b.Feedback, f)
	write(w, http.StatusCreated, map[string]any{"status": "success", "data": f, "message": "Thank you for your feedback"})
}
