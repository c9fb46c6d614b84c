package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
	"mobilestore/internal/tokens"
)

const maxBody = 8 << 20

// Client issues requests against the storefront backend. A Client without a
// Keeper is anonymous; WithSession returns a copy bound to one session's
// tokens. Copies share the HTTP client and the refresh group.
type Client struct {
	baseURL   string
	http      *http.Client
	keeper    *tokens.Keeper
	onExpired func()
	refresh   *singleflight.Group
	now       func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		refresh: &singleflight.Group{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithSession binds the client to a token keeper. onExpired, if set, runs
// after a failed refresh has cleared the tokens.
func (c *Client) WithSession(k *tokens.Keeper, onExpired func()) *Client {
	cp := *c
	cp.keeper = k
	cp.onExpired = onExpired
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	method string
	path   string
	body   any
	// anonymous calls never carry a bearer and never trigger a refresh
	anonymous bool
}

func do[T any](ctx context.Context, c *Client, cl call) (*Envelope[T], error) {
	status, raw, err := c.roundTrip(ctx, cl)
	if err != nil {
		return nil, err
	}
	return decode[T](status, raw)
}

func (c *Client) roundTrip(ctx context.Context, cl call) (int, []byte, error) {
	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		payload = b
	}

	var token string
	if !cl.anonymous && c.keeper != nil {
		t, err := c.keeper.AccessToken(ctx)
		if err != nil {
			applog.Warn(nil, "api.token.read.fail", err, nil)
		}
		token = t
	}
	bearer := ""
	if token != "" && !tokens.IsExpired(token, c.now()) {
		bearer = token
	}

	status, raw, err := c.exchange(ctx, cl.method, cl.path, payload, bearer)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized || token == "" || cl.anonymous {
		return status, raw, nil
	}

	// a concurrent request may already have rotated the pair
	if cur, _ := c.keeper.AccessToken(ctx); cur != "" && cur != token && !tokens.IsExpired(cur, c.now()) {
		return c.exchange(ctx, cl.method, cl.path, payload, cur)
	}

	if !c.refreshTokens(ctx) {
		if err := c.keeper.Clear(ctx); err != nil {
			applog.Error(nil, "api.token.clear.fail", err, nil)
		}
		applog.Security(nil, "session.expired", map[string]any{"path": cl.path})
		if c.onExpired != nil {
			c.onExpired()
		}
		return 0, nil, ErrSessionExpired
	}

	// replay exactly once; a second 401 is returned as is
	fresh, err := c.keeper.AccessToken(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("read refreshed token: %w", err)
	}
	return c.exchange(ctx, cl.method, cl.path, payload, fresh)
}

func (c *Client) exchange(ctx context.Context, method, path string, payload []byte, bearer string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		applog.Error(nil, "api.request.fail", err, map[string]any{"method": method, "path": path})
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	return resp.StatusCode, raw, nil
}

// refreshTokens trades the stored refresh token for a new pair. Concurrent
// callers holding the same refresh token share one exchange.
func (c *Client) refreshTokens(ctx context.Context) bool {
	rt, err := c.keeper.RefreshToken(ctx)
	if err != nil || rt == "" {
		return false
	}
	v, _, _ := c.refresh.Do(rt, func() (any, error) {
		return c.exchangeRefresh(ctx, rt), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) bool {
	payload, _ := json.Marshal(map[string]string{"refreshToken": refreshToken})
	status, raw, err := c.exchange(ctx, http.MethodPost, "/auth/refresh", payload, "")
	if err != nil {
		applog.Warn(nil, "api.refresh.fail", err, nil)
		return false
	}
	if status < 200 || status >= 300 {
		applog.Warn(nil, "api.refresh.rejected", nil, map[string]any{"status": status})
		return false
	}
	env, err := decode[struct {
		Tokens domain.TokenPair `json:"tokens"`
	}](status, raw)
	if err != nil || env.Data.Tokens.AccessToken == "" {
		applog.Warn(nil, "api.refresh.malformed", err, nil)
		return false
	}
	if err := c.keeper.SetPair(ctx, env.Data.Tokens.AccessToken, env.Data.Tokens.RefreshToken); err != nil {
		applog.Error(nil, "api.refresh.store.fail", err, nil)
		return false
	}
	return true
}
