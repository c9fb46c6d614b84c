package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"mobilestore/internal/domain"
)

// /admin requires an admin session
func TestAdminGuardRequiresAdmin(t *testing.T) {
	app, be := newStoreApp(t, 100)

	anon := newBrowser(t, app)
	expectRedirect(t, anon.get("/admin/products?page=2"), "/admin/login?next="+url.QueryEscape("/admin/products?page=2"))

	// a stranger's sid is just an anonymous visitor
	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "made-up"})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	expectRedirect(t, resp, "/admin/login")

	be.UpdateAdmin(func(u *domain.AdminUser) { u.Role = "viewer" })
	viewer := newBrowser(t, app)
	viewer.login()
	var denied *http.Response
	logs := captureLogs(t, func() { denied = viewer.get("/admin") })
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin expected 403, got %d", denied.StatusCode)
	}
	if _, ok := findLog(logs, "access.denied.admin"); !ok {
		t.Fatal("access.denied.admin not logged")
	}

	be.UpdateAdmin(func(u *domain.AdminUser) { u.Role = domain.RoleAdmin })
	admin := newBrowser(t, app)
	admin.login()
	ok := admin.get("/admin")
	if ok.StatusCode != http.StatusOK {
		t.Fatalf("admin expected 200, got %d", ok.StatusCode)
	}
	if s := body(t, ok); !strings.Contains(s, "Sign out Ada") {
		t.Fatalf("header does not show the admin; body=%s", s)
	}
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)
	br.login()

	be.RevokeAccess()
	be.FailRefresh(true)

	var resp *http.Response
	logs := captureLogs(t, func() { resp = br.get("/admin") })
	expectRedirect(t, resp, "/admin/login?next=")
	if _, ok := findLog(logs, "session.expired"); !ok {
		t.Fatal("session.expired not logged")
	}

	page := br.get("/admin/login")
	if s := body(t, page); !strings.Contains(s, "Your session has expired") {
		t.Fatalf("expiry notice missing; body=%s", s)
	}
	expectRedirect(t, br.get("/admin"), "/admin/login")
}

func TestRevokedTokenIsRefreshedTransparently(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)
	br.login()

	be.RevokeAccess()
	resp := br.post("/admin/cache/clear", nil)
	expectRedirect(t, resp, "/admin")
	if n := be.Hits("POST", "/admin/cache/clear"); n != 2 {
		t.Fatalf("expected the rejected call and its replay, got %d", n)
	}
	if n := be.Hits("POST", "/auth/refresh"); n != 1 {
		t.Fatalf("expected one refresh, got %d", n)
	}
}

func TestAdminPostsRequireCSRF(t *testing.T) {
	app, be := newStoreApp(t, 100)
	br := newBrowser(t, app)
	br.login()

	req := httptest.NewRequest("POST", "/admin/cache/clear", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var resp *http.Response
	logs := captureLogs(t, func() { resp = br.do(req) })
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf, got %d", resp.StatusCode)
	}
	if _, ok := findLog(logs, "csrf.fail"); !ok {
		t.Fatal("csrf.fail not logged")
	}
	if n := be.Hits("POST", "/admin/cache/clear"); n != 0 {
		t.Fatalf("backend reached without csrf: %d", n)
	}
}
