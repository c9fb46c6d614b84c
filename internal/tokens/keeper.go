package tokens

import (
	"context"
	"fmt"
)

const (
	AccessTokenKey  = "mobile_store_access_token"
	RefreshTokenKey = "mobile_store_refresh_token"
)

// Keeper reads and writes one session's token pair. The namespace separates
// sessions sharing a Store (the web app uses the sid cookie); the CLI uses "".
type Keeper struct {
	store     Store
	namespace string
}

func NewKeeper(store Store, namespace string) *Keeper {
	return &Keeper{store: store, namespace: namespace}
}

func (k *Keeper) key(name string) string {
	if k.namespace == "" {
		return name
	}
	return k.namespace + ":" + name
}

func (k *Keeper) AccessToken(ctx context.Context) (string, error) {
	return k.store.Get(ctx, k.key(AccessTokenKey))
}

func (k *Keeper) RefreshToken(ctx context.Context) (string, error) {
	return k.store.Get(ctx, k.key(RefreshTokenKey))
}

// SetPair stores both tokens. A failure on the second write removes the first
// so a half-written pair is never left behind.
func (k *Keeper) SetPair(ctx context.Context, access, refresh string) error {
	if err := k.store.Set(ctx, k.key(AccessTokenKey), access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := k.store.Set(ctx, k.key(RefreshTokenKey), refresh); err != nil {
		_ = k.store.Delete(ctx, k.key(AccessTokenKey))
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (k *Keeper) Clear(ctx context.Context) error {
	return k.store.Delete(ctx, k.key(AccessTokenKey), k.key(RefreshTokenKey))
}
