package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"mobilestore/internal/services"
)

func TestHomeShowsSections(t *testing.T) {
	app, _ := newStoreApp(t, 100)
	resp := newBrowser(t, app).get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("home: %d", resp.StatusCode)
	}
	s := body(t, resp)
	for _, want := range []string{"Pixel 9", "Galaxy S24", "Budget Phone", `/products?category=c1`} {
		if !strings.Contains(s, want) {
			t.Errorf("home missing %q", want)
		}
	}
}

func TestAboutPage(t *testing.T) {
	app, be := newStoreApp(t, 100)
	resp := newBrowser(t, app).get("/about")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("about: %d", resp.StatusCode)
	}
	s := body(t, resp)
	for _, want := range []string{"About Mobile Store", "Our story", `href="/products"`, `href="/about"`} {
		if !strings.Contains(s, want) {
			t.Errorf("about missing %q", want)
		}
	}
	if n := len(be.Requests()); n != 0 {
		t.Errorf("static page made %d backend calls", n)
	}
}

func TestHomeBackendDownIsFriendly(t *testing.T) {
	app, be := newStoreApp(t, 100)
	be.Override("GET /products/featured", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"db timeout: secret trace"}`))
	})
	resp := newBrowser(t, app).get("/")
	s := body(t, resp)
	if resp.StatusCode < 500 {
		t.Fatalf("expected an error status, got %d", resp.StatusCode)
	}
	if strings.Contains(s, "secret trace") || !strings.Contains(s, "Could not load the store") {
		t.Fatalf("unexpected error page: %s", s)
	}
}

func TestProductListFiltersAndSorts(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)

	s := body(t, br.get("/products?category=c2"))
	if !strings.Contains(s, "Galaxy Tab") || strings.Contains(s, "Pixel 9") {
		t.Fatalf("category filter not applied: %s", s)
	}
	if n := be.Hits("GET", "/products/category/c2"); n != 1 {
		t.Fatalf("expected the by-category endpoint, hits=%d", n)
	}

	s = body(t, br.get("/products?sort="+services.SortPriceLow))
	cheap, dear := strings.Index(s, "Budget Phone"), strings.Index(s, "Galaxy S24")
	if cheap < 0 || dear < 0 || cheap > dear {
		t.Fatalf("price-low order wrong: budget@%d galaxy@%d", cheap, dear)
	}

	s = body(t, br.get("/products?q=galaxy"))
	if strings.Contains(s, "Pixel 9") || !strings.Contains(s, "Galaxy Tab") {
		t.Fatal("name filter not applied")
	}

	if resp := br.get("/products?brand=%3Cx%3E"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("bad brand id: expected 404, got %d", resp.StatusCode)
	}
}

func TestProductDetail(t *testing.T) {
	app, _ := newStoreApp(t, 100)
	br := newBrowser(t, app)

	resp := br.get("/product/p1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail: %d", resp.StatusCode)
	}
	s := body(t, resp)
	for _, want := range []string{"Pixel 9", "12GB", "$799.00", "$999.00", "You may also like", "Galaxy S24"} {
		if !strings.Contains(s, want) {
			t.Errorf("detail missing %q", want)
		}
	}

	missing := br.get("/product/p404")
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", missing.StatusCode)
	}
	if s := body(t, missing); !strings.Contains(s, "no longer available") {
		t.Fatalf("friendly message missing: %s", s)
	}
	if resp := br.get("/product/bad%20id"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("malformed id: expected 404, got %d", resp.StatusCode)
	}
}

// templates auto-escape backend text
func TestTemplateAutoEscape(t *testing.T) {
	app, be := newStoreApp(t, 100)
	be.Override("GET /products/p9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": map[string]any{
			"id": "p9", "name": "<script>alert(1)</script>", "price": 1, "description": "<b>desc</b>",
		}})
	})
	s := body(t, newBrowser(t, app).get("/product/p9"))
	if strings.Contains(s, "<script>alert(1)</script>") {
		t.Fatalf("found unescaped script tag in output")
	}
	if !strings.Contains(s, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("escaped script not found; output=%s", s)
	}
}

func TestSearchPage(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)

	empty := body(t, br.get("/search"))
	if be.Hits("GET", "/products/search") != 0 {
		t.Fatal("empty query reached the search endpoint")
	}
	if !strings.Contains(empty, "Popular searches") {
		t.Fatal("popular searches not shown")
	}

	s := body(t, br.get("/search?q=galaxy"))
	if !strings.Contains(s, "Galaxy S24") || !strings.Contains(s, "Galaxy Tab") || strings.Contains(s, "Pixel 9</h3>") {
		t.Fatalf("unexpected results: %s", s)
	}
	if !strings.Contains(s, "2 results for") {
		t.Fatal("search metadata not rendered")
	}

	bad := br.get("/search?q=%3Cscript%3E")
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad search expected 400, got %d", bad.StatusCode)
	}
	if s := body(t, bad); !strings.Contains(s, "Enter a valid keyword") {
		t.Fatal("validation message missing")
	}
	if resp := br.get("/search?q=phone&min_price=abc"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad price expected 400, got %d", resp.StatusCode)
	}
	if n := be.Hits("GET", "/products/search"); n != 1 {
		t.Fatalf("invalid searches reached the backend: %d", n)
	}
}

func TestSuggestJSON(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	resp := br.get("/search/suggest?q=gal")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Suggestions) != 2 || out.Suggestions[0] != "Galaxy S24" {
		t.Fatalf("suggestions: %v", out.Suggestions)
	}

	resp = br.get("/search/suggest?q=g")
	out.Suggestions = nil
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Suggestions == nil || len(out.Suggestions) != 0 {
		t.Fatalf("short query: want an empty list, got %v", out.Suggestions)
	}
	if n := be.Hits("GET", "/products/search/suggestions"); n != 1 {
		t.Fatalf("short query reached the backend: %d calls", n)
	}
}
