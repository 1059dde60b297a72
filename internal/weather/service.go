package weather

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/agent-dashboard/internal/cache"
	"github.com/kjstillabower/agent-dashboard/internal/models"
	"github.com/kjstillabower/agent-dashboard/internal/observability"
)

// Service fronts the resolver with a cache-aside layer. Concurrent
// lookups for the same city are coalesced through singleflight so one
// search serves them all.
type Service struct {
	resolver *Resolver
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

// NewService creates a Service. ttl is the cache lifetime for resolved
// reports.
func NewService(resolver *Resolver, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{resolver: resolver, cache: c, ttl: ttl, logger: logger}
}

// GetReport returns the weather report for a location, from cache when
// possible. Resolution itself never fails (it degrades to the fallback
// table), so the error return only reflects future backend growth; it is
// nil today.
func (s *Service) GetReport(ctx context.Context, location string) (models.WeatherReport, error) {
	key := normalizeLocation(location)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		if s.logger != nil {
			s.logger.Warn("cache get failed", zap.String("location", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		return cached, nil
	}

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		report := s.resolver.Resolve(ctx, key)
		// Fallback reports are not cached: the next query should retry
		// the live path instead of pinning stale static data.
		if report.FallbackReason == "" {
			if setErr := s.cache.Set(ctx, key, report, s.ttl); setErr != nil {
				observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
				if s.logger != nil {
					s.logger.Warn("cache set failed", zap.String("location", key), zap.Error(setErr))
				}
			}
		}
		return report, nil
	})
	return v.(models.WeatherReport), nil
}

// categorizeCacheError returns a stable label for cache error metrics.
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return "connection"
	default:
		return "unknown"
	}
}

// normalizeLocation produces a consistent cache key regardless of input
// casing or padding.
func normalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
