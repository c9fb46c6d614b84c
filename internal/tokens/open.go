package tokens

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a Store.
type Options struct {
	Kind      string // sqlite | memory | redis
	DSN       string
	RedisAddr string
	RedisTTL  time.Duration
	// Secret, when set, wraps the store so tokens are encrypted at rest.
	Secret string
}

// Open builds the Store described by o. The returned close func releases the
// underlying connection and is never nil.
func Open(ctx context.Context, o Options) (Store, func() error, error) {
	var (
		st      Store
		closeFn = func() error { return nil }
	)
	switch o.Kind {
	case "memory":
		st = NewMemoryStore()
	case "redis":
		ttl := o.RedisTTL
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
		rs, err := DialRedis(ctx, o.RedisAddr, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("redis token store %s: %w", o.RedisAddr, err)
		}
		st, closeFn = rs, rs.Close
	case "sqlite", "":
		ss, err := OpenSQLStore(o.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite token store %s: %w", o.DSN, err)
		}
		st, closeFn = ss, ss.Close
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", o.Kind)
	}

	if o.Secret != "" {
		sealed, err := NewSealedStore(st, o.Secret)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		st = sealed
	}
	return st, closeFn, nil
}
