package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kjstillabower/agent-dashboard/internal/models"
)

// ReportFetcher is implemented by the weather service. Declared here so
// the warmer does not depend on the service package.
type ReportFetcher interface {
	GetReport(ctx context.Context, location string) (models.WeatherReport, error)
}

// Warmer prefetches weather reports for tracked cities so dashboard
// queries for them hit cache.
type Warmer struct {
	fetcher ReportFetcher
	logger  *zap.Logger
}

// NewWarmer creates a Warmer over the given fetcher.
func NewWarmer(fetcher ReportFetcher, logger *zap.Logger) *Warmer {
	return &Warmer{fetcher: fetcher, logger: logger}
}

// Warm fetches each city concurrently, populating the cache through the
// fetcher. Returns an aggregated error if any city failed.
func (w *Warmer) Warm(ctx context.Context, cities []string) error {
	start := time.Now()
	if w.logger != nil {
		w.logger.Info("warming weather cache", zap.Int("cities", len(cities)))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(cities))
	for _, city := range cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			if _, err := w.fetcher.GetReport(ctx, city); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", city, err)
			}
		}(city)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if w.logger != nil {
		w.logger.Info("weather cache warming complete",
			zap.Int("cities", len(cities)),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// Schedule runs Warm on the given cron schedule (e.g. "@every 15m") until
// the returned cron is stopped. Each run gets its own timeout.
func (w *Warmer) Schedule(spec string, cities []string, runTimeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := w.Warm(ctx, cities); err != nil && w.logger != nil {
			w.logger.Warn("scheduled cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cache warming: %w", err)
	}
	c.Start()
	return c, nil
}
