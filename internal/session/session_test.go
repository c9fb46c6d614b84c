package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/session"
	"mobilestore/internal/testutil"
	"mobilestore/internal/tokens"
)

func newManager(t *testing.T) (*session.Manager, *tokens.Keeper, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t)
	k := tokens.NewKeeper(tokens.NewMemoryStore(), "sid")
	return session.NewManager(api.New(b.URL), k), k, b
}

func TestLoginStoresTokensAndUser(t *testing.T) {
	m, k, _ := newManager(t)
	ctx := context.Background()

	u, err := m.Login(ctx, testutil.AdminEmail, testutil.AdminPassword)
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != testutil.AdminEmail || m.CurrentUser() == nil {
		t.Fatalf("user not set: %+v", u)
	}
	acc, _ := k.AccessToken(ctx)
	ref, _ := k.RefreshToken(ctx)
	if acc == "" || ref == "" {
		t.Fatal("tokens not stored")
	}
}

func TestFailedLoginKeepsPriorSession(t *testing.T) {
	m, k, _ := newManager(t)
	ctx := context.Background()
	if _, err := m.Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
		t.Fatal(err)
	}
	before, _ := k.AccessToken(ctx)

	_, err := m.Login(ctx, testutil.AdminEmail, "wrong")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid email or password" {
		t.Fatalf("expected server message, got %v", err)
	}
	after, _ := k.AccessToken(ctx)
	if after != before || m.CurrentUser() == nil {
		t.Fatal("failed login modified the session")
	}
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	m, k, b := newManager(t)
	ctx := context.Background()
	if _, err := m.Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
		t.Fatal(err)
	}
	b.RevokeAccess()
	b.FailRefresh(true)

	if err := m.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if m.CurrentUser() != nil {
		t.Fatal("user not cleared")
	}
	if acc, _ := k.AccessToken(ctx); acc != "" {
		t.Fatal("tokens not cleared")
	}
	if b.Hits("POST", "/auth/logout") != 1 {
		t.Fatal("backend was not notified")
	}
}

func TestLogoutWithoutTokenSkipsBackend(t *testing.T) {
	m, _, b := newManager(t)
	if err := m.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.Hits("POST", "/auth/logout") != 0 {
		t.Fatal("no notification expected without a token")
	}
}

func TestRefreshProfileUpdatesUser(t *testing.T) {
	m, _, b := newManager(t)
	ctx := context.Background()
	if _, err := m.Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
		t.Fatal(err)
	}
	b.UpdateAdmin(func(u *domain.AdminUser) { u.FirstName = "Grace" })
	if err := m.RefreshProfile(ctx); err != nil {
		t.Fatal(err)
	}
	if m.CurrentUser().DisplayName() != "Grace" {
		t.Fatalf("profile not refreshed: %+v", m.CurrentUser())
	}
}

func TestExpiredRefreshDropsUser(t *testing.T) {
	m, _, b := newManager(t)
	ctx := context.Background()
	if _, err := m.Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
		t.Fatal(err)
	}
	b.RevokeAccess()
	b.FailRefresh(true)

	if err := m.RefreshProfile(ctx); !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if m.CurrentUser() != nil {
		t.Fatal("user should be dropped when the session expires")
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token loads profile", func(t *testing.T) {
		m, k, b := newManager(t)
		p := b.IssuePair()
		_ = k.SetPair(ctx, p.AccessToken, p.RefreshToken)
		m.Initialize(ctx)
		if m.CurrentUser() == nil {
			t.Fatal("profile not loaded")
		}
		m.Initialize(ctx)
		if b.Hits("GET", "/auth/profile") != 1 {
			t.Fatal("Initialize must run once")
		}
	})

	t.Run("expired access renews through refresh", func(t *testing.T) {
		m, k, b := newManager(t)
		p := b.IssuePair()
		_ = k.SetPair(ctx, b.Token(-time.Minute), p.RefreshToken)
		m.Initialize(ctx)
		if m.CurrentUser() == nil || b.Hits("POST", "/auth/refresh") != 1 {
			t.Fatal("expected profile via refresh")
		}
	})

	t.Run("no tokens does nothing", func(t *testing.T) {
		m, _, b := newManager(t)
		m.Initialize(ctx)
		if m.CurrentUser() != nil || len(b.Requests()) != 0 {
			t.Fatal("no backend call expected")
		}
	})

	t.Run("rejected profile clears tokens", func(t *testing.T) {
		m, k, b := newManager(t)
		_ = k.SetPair(ctx, b.Token(time.Hour), "bogus")
		b.RevokeAccess()
		m.Initialize(ctx)
		if acc, _ := k.AccessToken(ctx); acc != "" || m.CurrentUser() != nil {
			t.Fatal("tokens should be cleared")
		}
	})
}

func TestRegistry(t *testing.T) {
	b := testutil.NewBackend(t)
	store := tokens.NewMemoryStore()
	reg := session.NewRegistry(api.New(b.URL), store)
	ctx := context.Background()

	a := reg.Get("sid-a")
	if reg.Get("sid-a") != a {
		t.Fatal("same sid must return the same manager")
	}
	if reg.Get("sid-b") == a {
		t.Fatal("sessions must be separate")
	}
	if _, err := a.Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
		t.Fatal(err)
	}
	if reg.Get("sid-b").CurrentUser() != nil {
		t.Fatal("login leaked across sessions")
	}

	// evicted managers are rebuilt from stored tokens
	reg.Forget("sid-a")
	again := reg.Get("sid-a")
	if again == a {
		t.Fatal("expected a fresh manager")
	}
	again.Initialize(ctx)
	if again.CurrentUser() == nil {
		t.Fatal("user not restored from store")
	}

	time.Sleep(5 * time.Millisecond)
	if n := reg.Prune(time.Millisecond); n != 2 || reg.Len() != 0 {
		t.Fatalf("pruned %d, left %d", n, reg.Len())
	}
}

func TestRegistrySweepsAbandonedTokens(t *testing.T) {
	b := testutil.NewBackend(t)
	store := tokens.NewMemoryStore()
	reg := session.NewRegistry(api.New(b.URL), store)
	ctx := context.Background()

	for _, sid := range []string{"sid-a", "sid-b", "sid-c"} {
		if _, err := reg.Get(sid).Login(ctx, testutil.AdminEmail, testutil.AdminPassword); err != nil {
			t.Fatal(err)
		}
	}
	if err := tokens.NewKeeper(store, "").SetPair(ctx, "cli-acc", "cli-ref"); err != nil {
		t.Fatal(err)
	}

	reg.Forget("sid-b")
	if n, err := reg.Sweep(ctx, time.Now().Add(time.Second)); err != nil || n != 2 {
		t.Fatalf("want sid-b's pair swept, got %d %v", n, err)
	}
	if ref, _ := tokens.NewKeeper(store, "sid-b").RefreshToken(ctx); ref != "" {
		t.Fatal("abandoned session kept its refresh token")
	}
	if ref, _ := tokens.NewKeeper(store, "sid-a").RefreshToken(ctx); ref == "" {
		t.Fatal("live session lost its tokens")
	}
	if ref, _ := tokens.NewKeeper(store, "").RefreshToken(ctx); ref != "cli-ref" {
		t.Fatal("CLI tokens must never be swept")
	}

	// Discard drops tokens even while the session is live
	if err := reg.Discard(ctx, "sid-c"); err != nil {
		t.Fatal(err)
	}
	if ref, _ := tokens.NewKeeper(store, "sid-c").RefreshToken(ctx); ref != "" {
		t.Fatal("discarded session kept its refresh token")
	}
	again := reg.Get("sid-c")
	again.Initialize(ctx)
	if again.CurrentUser() != nil {
		t.Fatal("discarded sid came back signed in")
	}
}
