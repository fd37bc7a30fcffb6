// Package rediscache shares reverse geocoding results between service
// replicas through Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/couchcryptid/coord-kml-etl/internal/observability"
	goredis "github.com/redis/go-redis/v9"
)

// Open returns a client for addr, or nil when addr is empty.
func Open(addr, password string) *goredis.Client {
	if addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
}

// CachedGeocoder is a read-through Redis cache in front of a Geocoder.
// Redis failures are logged and the inner geocoder answers instead.
type CachedGeocoder struct {
	inner   domain.Geocoder
	client  goredis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with a Redis cache whose entries expire after ttl.
func NewCachedGeocoder(inner domain.Geocoder, client goredis.Cmdable, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// Key returns the cache key of a point, rounded to five decimals (about 1 m).
func Key(lat, lon float64) string {
	return fmt.Sprintf("revgeo:%.5f:%.5f", lat, lon)
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := Key(lat, lon)

	if result, ok := c.lookup(ctx, key); ok {
		c.metrics.GeocodeCache.WithLabelValues("redis", "hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("redis", "miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil || result.FormattedAddress == "" {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", "key", key, "error", err)
	}
	return result, nil
}

func (c *CachedGeocoder) lookup(ctx context.Context, key string) (domain.GeocodingResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("redis cache read failed", "key", key, "error", err)
		}
		return domain.GeocodingResult{}, false
	}

	var result domain.GeocodingResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("redis cache entry corrupt", "key", key, "error", err)
		return domain.GeocodingResult{}, false
	}
	return result, true
}
