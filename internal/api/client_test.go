package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/testutil"
	"mobilestore/internal/tokens"
)

func session(t *testing.T, b *testutil.Backend) (*api.Client, *tokens.Keeper, *int32) {
	t.Helper()
	k := tokens.NewKeeper(tokens.NewMemoryStore(), "")
	var expired int32
	c := api.New(b.URL).WithSession(k, func() { atomic.AddInt32(&expired, 1) })
	return c, k, &expired
}

func storePair(t *testing.T, k *tokens.Keeper, p domain.TokenPair) {
	t.Helper()
	if err := k.SetPair(context.Background(), p.AccessToken, p.RefreshToken); err != nil {
		t.Fatal(err)
	}
}

func TestBearerAttachedWhenTokenValid(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	pair := b.IssuePair()
	storePair(t, k, pair)

	env, err := c.DashboardStats(context.Background())
	if err != nil || !env.OK() {
		t.Fatalf("dashboard: %v %+v", err, env)
	}
	if env.Data.TotalProducts != 4 {
		t.Fatalf("expected 4 products, got %d", env.Data.TotalProducts)
	}
	req, _ := b.Last("GET", "/admin/dashboard")
	if req.Auth != "Bearer "+pair.AccessToken {
		t.Fatalf("bearer not attached: %q", req.Auth)
	}
}

func TestExpiredTokenIsNotSent(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	storePair(t, k, domain.TokenPair{AccessToken: b.Token(-time.Minute), RefreshToken: "unused"})

	if _, err := c.Categories(context.Background()); err != nil {
		t.Fatal(err)
	}
	req, _ := b.Last("GET", "/categories")
	if req.Auth != "" {
		t.Fatalf("expired token must not be attached, got %q", req.Auth)
	}
}

func TestUnauthorizedRefreshesOnceAndReplays(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, expired := session(t, b)
	old := b.IssuePair()
	storePair(t, k, old)
	b.RevokeAccess()

	env, err := c.DashboardStats(context.Background())
	if err != nil || !env.OK() {
		t.Fatalf("expected replayed success, got %v %+v", err, env)
	}
	if n := b.Hits("POST", "/auth/refresh"); n != 1 {
		t.Fatalf("expected 1 refresh, got %d", n)
	}
	if n := b.Hits("GET", "/admin/dashboard"); n != 2 {
		t.Fatalf("expected original + replay, got %d", n)
	}
	acc, _ := k.AccessToken(context.Background())
	ref, _ := k.RefreshToken(context.Background())
	if acc == "" || acc == old.AccessToken || ref == old.RefreshToken {
		t.Fatalf("tokens not rotated: %q %q", acc, ref)
	}
	if atomic.LoadInt32(expired) != 0 {
		t.Fatal("onExpired must not fire on a successful refresh")
	}
	last, _ := b.Last("GET", "/admin/dashboard")
	if last.Auth != "Bearer "+acc {
		t.Fatal("replay did not use the refreshed token")
	}
}

func TestFailedRefreshClearsSession(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, expired := session(t, b)
	storePair(t, k, b.IssuePair())
	b.RevokeAccess()
	b.FailRefresh(true)

	_, err := c.DashboardStats(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	acc, _ := k.AccessToken(context.Background())
	ref, _ := k.RefreshToken(context.Background())
	if acc != "" || ref != "" {
		t.Fatal("tokens must be cleared after a failed refresh")
	}
	if atomic.LoadInt32(expired) != 1 {
		t.Fatalf("onExpired fired %d times", *expired)
	}
	if n := b.Hits("GET", "/admin/dashboard"); n != 1 {
		t.Fatalf("no replay after failed refresh, got %d calls", n)
	}
}

func TestSecondUnauthorizedIsNotRetried(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	storePair(t, k, b.IssuePair())
	b.Override("GET /admin/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"nope"}`))
	})

	env, err := c.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("second 401 is returned as an envelope, got %v", err)
	}
	if env.OK() || env.HTTPStatus != http.StatusUnauthorized || env.Message != "nope" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if b.Hits("POST", "/auth/refresh") != 1 || b.Hits("GET", "/admin/dashboard") != 2 {
		t.Fatal("expected exactly one refresh and one replay")
	}
}

func TestUnauthorizedWithoutTokenDoesNotRefresh(t *testing.T) {
	b := testutil.NewBackend(t)
	c, _, expired := session(t, b)

	env, err := c.DashboardStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if env.OK() || env.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 envelope, got %+v", env)
	}
	if b.Hits("POST", "/auth/refresh") != 0 || atomic.LoadInt32(expired) != 0 {
		t.Fatal("no refresh without a stored token")
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	storePair(t, k, b.IssuePair())
	b.RevokeAccess()
	b.SlowRefresh(200 * time.Millisecond)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			env, err := c.DashboardStats(context.Background())
			if err != nil {
				return err
			}
			return env.Err()
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := b.Hits("POST", "/auth/refresh"); n != 1 {
		t.Fatalf("expected one shared refresh, got %d", n)
	}
}

func TestFailedLoginLeavesSessionUntouched(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	pair := b.IssuePair()
	storePair(t, k, pair)

	env, err := c.Login(context.Background(), domain.LoginData{Email: testutil.AdminEmail, Password: "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if env.OK() || env.Message != "Invalid email or password" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	req, _ := b.Last("POST", "/auth/login")
	if req.Auth != "" {
		t.Fatal("login must not carry a bearer")
	}
	if b.Hits("POST", "/auth/refresh") != 0 {
		t.Fatal("login 401 must not trigger a refresh")
	}
	if acc, _ := k.AccessToken(context.Background()); acc != pair.AccessToken {
		t.Fatal("prior session was modified")
	}
}

func TestNetworkFailures(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	_, err := api.New(url, api.WithTimeout(time.Second)).Categories(context.Background())
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("unreachable backend: expected ErrNetwork, got %v", err)
	}

	b := testutil.NewBackend(t)
	b.Override("GET /brands", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>gateway</html>"))
	})
	_, err = api.New(b.URL).Brands(context.Background())
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("non-JSON body: expected ErrNetwork, got %v", err)
	}
}

func TestEmptySuccessBody(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	storePair(t, k, b.IssuePair())
	b.Override("DELETE /products/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	env, err := c.DeleteProduct(context.Background(), "p1")
	if err != nil || !env.OK() || env.HasData {
		t.Fatalf("204 should be a bare success, got %v %+v", err, env)
	}
}

func TestApplicationErrorCarriesStatus(t *testing.T) {
	b := testutil.NewBackend(t)
	env, err := api.New(b.URL).Product(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	var apiErr *api.Error
	if !errors.As(env.Err(), &apiErr) || apiErr.HTTPStatus != http.StatusNotFound || apiErr.Message != "Product not found" {
		t.Fatalf("unexpected error %v", env.Err())
	}
}

func TestCreateProductSendsPlainIDs(t *testing.T) {
	b := testutil.NewBackend(t)
	c, k, _ := session(t, b)
	storePair(t, k, b.IssuePair())

	env, err := c.CreateProduct(context.Background(), domain.ProductInput{
		Name: "Pixel 9a", Price: 499, BrandID: api.String("b1"), CategoryID: api.String("c1"),
		Images: []string{}, Specifications: map[string]string{"RAM": "8GB"},
	})
	if err != nil || !env.OK() {
		t.Fatalf("create: %v %+v", err, env)
	}
	if env.Data.BrandName() != "Google" {
		t.Fatalf("brand not resolved: %+v", env.Data.Brand)
	}
	req, _ := b.Last("POST", "/products")
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["brand_id"] != "b1" || body["category_id"] != "c1" {
		t.Fatalf("ids not sent: %v", body)
	}
	if _, ok := body["brand"]; ok {
		t.Fatal("brand object must not be sent")
	}
}

func TestSearchReturnsMetadata(t *testing.T) {
	b := testutil.NewBackend(t)
	env, err := api.New(b.URL).SearchProducts(context.Background(), api.SearchParams{
		Query: api.String("galaxy"), Page: api.Int(1), Limit: api.Int(1),
	})
	if err != nil || !env.OK() {
		t.Fatal(err)
	}
	meta, ok := env.SearchMeta()
	if !ok || meta.TotalResults != 2 || !meta.HasNext || meta.HasPrevious {
		t.Fatalf("metadata: %+v ok=%v", meta, ok)
	}
	if env.Pagination == nil || env.Pagination.TotalPages != 2 {
		t.Fatalf("pagination: %+v", env.Pagination)
	}
	req, _ := b.Last("GET", "/products/search")
	if req.Query != "query=galaxy&limit=1&page=1" {
		t.Fatalf("query string: %s", req.Query)
	}
}
