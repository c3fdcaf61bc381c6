package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/cache"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Cache is the subset of cache.PGCache used by CachedDirectory
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedDirectory memoizes lookups of another Directory, misses included.
// Cache failures only cost a trip to the inner directory.
type CachedDirectory struct {
	inner  Directory
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedDirectory(inner Directory, c Cache, ttl time.Duration, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// cachedProfile distinguishes a cached miss (Info == nil) from an absent entry
type cachedProfile struct {
	Info *domain.ProfileInfo `json:"info"`
}

func (d *CachedDirectory) Lookup(ctx context.Context, identityKey string) (*domain.ProfileInfo, error) {
	raw, err := d.cache.Get(ctx, identityKey)
	switch {
	case err == nil:
		var cached cachedProfile
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached.Info, nil
		}
		d.logger.Debug("discarding undecodable profile cache entry", slog.String("identity_key", identityKey))
	case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, cache.ErrCacheExpired):
	default:
		d.logger.Warn("profile cache read failed", slog.String("identity_key", identityKey), slog.Any("error", err))
	}

	info, err := d.inner.Lookup(ctx, identityKey)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedProfile{Info: info})
	if err == nil {
		err = d.cache.Set(ctx, identityKey, payload, d.ttl)
	}
	if err != nil {
		d.logger.Warn("profile cache write failed", slog.String("identity_key", identityKey), slog.Any("error", err))
	}

	return info, nil
}
