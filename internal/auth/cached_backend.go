package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-console/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-console/internal/session"
)

const sharedLookupTimeout = 10 * time.Second

// CachedBackend caches Me lookups so that restoring the session on every
// request does not hit the backend each time. Concurrent lookups for the
// same token share one backend call.
type CachedBackend struct {
	Backend
	cache  *cache.JSON
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedBackend wraps next with the cache.
func NewCachedBackend(next Backend, c *cache.JSON, logger *slog.Logger) *CachedBackend {
	return &CachedBackend{Backend: next, cache: c, logger: logger}
}

// Me returns the cached user for token or loads it from the wrapped backend.
func (b *CachedBackend) Me(ctx context.Context, token string) (session.User, error) {
	key := cacheKey(token)
	var user session.User
	if ok, err := b.cache.Get(ctx, key, &user); err != nil {
		b.warn("auth cache read", err)
	} else if ok {
		return user, nil
	}

	resultChan := b.group.DoChan(key, func() (interface{}, error) {
		// The lookup is shared by every waiter on token, so it must not die
		// with the request that happened to start it.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		user, err := b.Backend.Me(shared, token)
		if err != nil {
			return session.User{}, err
		}
		if err := b.cache.Set(shared, key, user); err != nil {
			b.warn("auth cache write", err)
		}
		return user, nil
	})
	select {
	case <-ctx.Done():
		return session.User{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return session.User{}, res.Err
		}
		return res.Val.(session.User), nil
	}
}

// Logout revokes token and drops its cache entry.
func (b *CachedBackend) Logout(ctx context.Context, token string) error {
	if err := b.cache.Delete(ctx, cacheKey(token)); err != nil {
		b.warn("auth cache delete", err)
	}
	return b.Backend.Logout(ctx, token)
}

func (b *CachedBackend) warn(msg string, err error) {
	if b.logger != nil {
		b.logger.Warn(msg, slog.Any("error", err))
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var _ Backend = (*CachedBackend)(nil)
