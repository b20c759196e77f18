// Package cache keeps read-only reference data in Redis so the catalogue is
// not re-read from the legacy store on every write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/prisoner-profile-details/internal/model"
)

// CatalogueSource is the authoritative catalogue reader.
type CatalogueSource interface {
	ListProfileTypes(ctx context.Context) ([]model.ProfileType, error)
}

// DefaultCatalogueKey is the Redis key the catalogue snapshot lives under.
const DefaultCatalogueKey = "profile-details:catalogue:v1"

// Catalogue decorates a CatalogueSource with a Redis read-through cache.
// Redis failures fall back to the source; they never fail the caller.
type Catalogue struct {
	src    CatalogueSource
	rdb    *redis.Client
	ttl    time.Duration
	key    string
	logger *zap.Logger
}

// NewCatalogue wraps src.  A nil rdb disables caching.
func NewCatalogue(src CatalogueSource, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Catalogue {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Catalogue{src: src, rdb: rdb, ttl: ttl, key: DefaultCatalogueKey, logger: logger.Named("catalogue-cache")}
}

// ListProfileTypes returns the cached catalogue, loading and storing it on a miss.
func (c *Catalogue) ListProfileTypes(ctx context.Context) ([]model.ProfileType, error) {
	if c.rdb == nil {
		return c.src.ListProfileTypes(ctx)
	}
	if bs, err := c.rdb.Get(ctx, c.key).Bytes(); err == nil {
		var types []model.ProfileType
		if err := json.Unmarshal(bs, &types); err == nil {
			return types, nil
		}
		c.logger.Warn("discarding undecodable catalogue entry")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get failed", zap.Error(err))
	}

	types, err := c.src.ListProfileTypes(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(types); err == nil {
		if err := c.rdb.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("redis set failed", zap.Error(err))
		}
	}
	return types, nil
}
