// Package session keeps the signed-in admin for one browser or CLI profile.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
	"mobilestore/internal/tokens"
)

// Manager owns one session: its token pair (through a Keeper) and the last
// known admin profile. It is safe for concurrent use.
type Manager struct {
	client *api.Client
	keeper *tokens.Keeper
	now    func() time.Time

	mu          sync.RWMutex
	user        *domain.AdminUser
	initialized bool
}

// NewManager binds base to keeper. A refresh failure inside any request made
// through Client() drops the cached user.
func NewManager(base *api.Client, keeper *tokens.Keeper) *Manager {
	m := &Manager{keeper: keeper, now: time.Now}
	m.client = base.WithSession(keeper, m.expire)
	return m
}

// Client is the session-bound API client.
func (m *Manager) Client() *api.Client { return m.client }

func (m *Manager) expire() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

func (m *Manager) CurrentUser() *domain.AdminUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Login exchanges credentials for a token pair. On any failure the current
// tokens and user are left as they were and the backend message is returned
// as an *api.Error.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.AdminUser, error) {
	env, err := m.client.Login(ctx, domain.LoginData{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, env.Err()
	}
	t := env.Data.Tokens
	if t.AccessToken == "" {
		return nil, &api.Error{HTTPStatus: env.HTTPStatus, Message: "login response carried no token"}
	}
	if err := m.keeper.SetPair(ctx, t.AccessToken, t.RefreshToken); err != nil {
		return nil, err
	}
	u := env.Data.Admin
	m.mu.Lock()
	m.user = &u
	m.initialized = true
	m.mu.Unlock()
	return &u, nil
}

// Logout notifies the backend when a token is held, then clears the session
// regardless of the outcome.
func (m *Manager) Logout(ctx context.Context) error {
	if tok, _ := m.keeper.AccessToken(ctx); tok != "" {
		env, err := m.client.Logout(ctx)
		switch {
		case err != nil && !errors.Is(err, api.ErrSessionExpired):
			applog.Warn(nil, "session.logout.notify.fail", err, nil)
		case err == nil && !env.OK():
			applog.Warn(nil, "session.logout.notify.fail", env.Err(), nil)
		}
	}
	m.expire()
	return m.keeper.Clear(ctx)
}

// RefreshProfile re-reads /auth/profile and replaces the cached user on success.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	env, err := m.client.Profile(ctx)
	if err != nil {
		return err
	}
	if !env.OK() {
		return env.Err()
	}
	u := env.Data
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return nil
}

// Initialize restores the user from stored tokens the first time a session is
// seen. It loads the profile when the access token is still valid or a
// refresh token can renew it; a failed load clears the tokens.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	m.mu.Unlock()

	access, err := m.keeper.AccessToken(ctx)
	if err != nil {
		applog.Warn(nil, "session.init.read.fail", err, nil)
		return
	}
	refresh, _ := m.keeper.RefreshToken(ctx)
	usable := access != "" && !tokens.IsExpired(access, m.now())
	if !usable && (access == "" || refresh == "") {
		return
	}
	if err := m.RefreshProfile(ctx); err != nil {
		if ctx.Err() != nil {
			m.mu.Lock()
			m.initialized = false
			m.mu.Unlock()
			return
		}
		applog.Warn(nil, "session.init.profile.fail", err, nil)
		if cerr := m.keeper.Clear(ctx); cerr != nil {
			applog.Error(nil, "session.init.clear.fail", cerr, nil)
		}
		m.expire()
	}
}
