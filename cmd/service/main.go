package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/agent-dashboard/internal/agent"
	"github.com/kjstillabower/agent-dashboard/internal/cache"
	"github.com/kjstillabower/agent-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/agent-dashboard/internal/config"
	"github.com/kjstillabower/agent-dashboard/internal/health"
	httphandler "github.com/kjstillabower/agent-dashboard/internal/http"
	"github.com/kjstillabower/agent-dashboard/internal/observability"
	"github.com/kjstillabower/agent-dashboard/internal/runner"
	"github.com/kjstillabower/agent-dashboard/internal/search"
	"github.com/kjstillabower/agent-dashboard/internal/trace"
	"github.com/kjstillabower/agent-dashboard/internal/ui"
	"github.com/kjstillabower/agent-dashboard/internal/weather"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	searcher := search.NewDuckDuckGo(cfg.SearchEndpoint, cfg.SearchTimeout)
	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Timeout:          cfg.BreakerTimeout,
		Component:        "web_search",
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition("web_search", from.String(), to.String(), float64(to))
		},
	})
	searcher.SetCircuitBreaker(cb)
	logger.Info("search circuit breaker enabled",
		zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
		zap.Duration("timeout", cfg.BreakerTimeout))

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	resolver := weather.NewResolver(searcher, logger)
	weatherService := weather.NewService(resolver, cacheSvc, cfg.CacheTTL, logger)

	execAgent, err := agent.NewExecAgent(cfg.AgentCommand, cfg.AgentArgs, cfg.AgentToken)
	if err != nil {
		logger.Fatal("agent", zap.Error(err))
	}
	if err := execAgent.Available(); err != nil {
		logger.Warn("agent command not resolvable at startup", zap.Error(err))
	}
	run := runner.New(execAgent, trace.NewScraper(), cfg.AgentTimeout, logger)

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:         cfg.OverloadWindow,
		OverloadThresholdPct:   cfg.OverloadThresholdPct,
		RateLimitRPS:           cfg.RateLimitRPS,
		RateLimitBurst:         cfg.RateLimitBurst,
		DegradedWindow:         cfg.DegradedWindow,
		DegradedErrorPct:       cfg.DegradedErrorPct,
		IdleWindow:             cfg.IdleWindow,
		IdleThresholdReqPerMin: cfg.IdleThresholdReqPerMin,
		MinimumLifespan:        cfg.MinimumLifespan,
		StartTime:              time.Now(),
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	limits := httphandler.QueryLimits{
		QueryMinLength:    cfg.QueryMinLength,
		QueryMaxLength:    cfg.QueryMaxLength,
		LocationMinLength: cfg.LocationMinLength,
		LocationMaxLength: cfg.LocationMaxLength,
	}
	handler := httphandler.NewHandler(weatherService, run, execAgent, healthConfig, limits, logger, limiter)

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	warmer := cache.NewWarmer(weatherService, logger)
	var warmCron *cron.Cron
	if len(cfg.TrackedCities) > 0 {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.WarmTimeout)
		if err := warmer.Warm(warmCtx, cfg.TrackedCities); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmSchedule != "" {
			c, err := warmer.Schedule(cfg.WarmSchedule, cfg.TrackedCities, cfg.WarmTimeout)
			if err != nil {
				logger.Fatal("cache warming schedule", zap.Error(err))
			}
			warmCron = c
			logger.Info("cache warming scheduled", zap.String("schedule", cfg.WarmSchedule))
		}
	}

	dashboard, err := ui.NewDashboard(logger)
	if err != nil {
		logger.Fatal("dashboard template", zap.Error(err))
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.Handle("/", dashboard).Methods("GET")
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.HandleFunc("/query", handler.PostQuery).Methods("POST")

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/{location}", handler.GetWeather).Methods("GET")

	if cfg.TestingMode {
		logger.Warn("Testing mode enabled; /test endpoint exposed")
		router.HandleFunc("/test", handler.GetTestStatus).Methods("GET")
		router.HandleFunc("/test/{action}", handler.PostTestAction).Methods("POST")
	}

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Agent runs stream no partial output; the response is written
		// only when the run completes, so the write timeout must cover
		// the full run.
		WriteTimeout: cfg.AgentTimeout + 30*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	health.SetShuttingDown(true)
	if warmCron != nil {
		warmCron.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.ShutdownInFlight.Set(float64(inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
