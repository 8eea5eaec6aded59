package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"lineacaptura/internal/admin"
	"lineacaptura/internal/authority"
	authoritymetrics "lineacaptura/internal/authority/metrics"
	"lineacaptura/internal/capture"
	capturemetrics "lineacaptura/internal/capture/metrics"
	"lineacaptura/internal/catalog"
	catalogmetrics "lineacaptura/internal/catalog/metrics"
	"lineacaptura/internal/fees"
	flowhandler "lineacaptura/internal/flow/handler"
	"lineacaptura/internal/platform/config"
	"lineacaptura/internal/platform/httpserver"
	"lineacaptura/internal/platform/logger"
	"lineacaptura/internal/platform/metrics"
	ratelimit "lineacaptura/internal/ratelimit/middleware"
	httptransport "lineacaptura/internal/transport/http"
	"lineacaptura/pkg/platform/middleware/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Server.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	trail, err := openAudit(ctx, cfg, deps, reg, log)
	if err != nil {
		return err
	}
	defer trail.Close()

	catalogStore, err := newCatalogStore(cfg, deps, log)
	if err != nil {
		return err
	}
	catalogService := catalog.New(catalogStore, newCatalogCache(deps), cfg.Catalog.CacheTTL,
		catalog.WithMetrics(catalogmetrics.New(reg)),
		catalog.WithLogger(log),
	)

	client, err := authority.New(cfg.Authority,
		authority.WithLogger(log),
		authority.WithMetrics(authoritymetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("configure authority client: %w", err)
	}

	captureOpts := []capture.Option{
		capture.WithPublisher(trail.publisher),
		capture.WithMetrics(capturemetrics.New(reg)),
		capture.WithLogger(log),
	}
	if trail.ledger != nil {
		captureOpts = append(captureOpts, capture.WithLedger(trail.ledger, trail.tx))
	}
	captureService := capture.New(catalogService, newCaptureStore(deps), fees.NewBuilder(loc), client, captureOpts...)

	httpMetrics := metrics.New(reg)
	limiter := ratelimit.New(newRateLimitStore(deps), log, httpMetrics)
	wizard := flowhandler.New(catalogService, captureService, newSessionStore(cfg, deps), trail.publisher, log, httpMetrics,
		flowhandler.WithGenerateLimit(limiter.ByIP(ratelimit.Limit{
			Name:     "generate",
			Requests: cfg.RateLimit.GenerateRequests,
			Window:   cfg.RateLimit.GenerateWindow,
		})),
	)
	operator := admin.New(catalogService, trail.recent, trail.publisher, cfg.Server.AdminToken, log)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:   log,
		Metrics:  httpMetrics,
		Gatherer: reg,
		Session: session.Config{
			CookieName: cfg.Flow.CookieName,
			Secure:     cfg.Flow.CookieSecure,
			TTL:        cfg.Flow.SessionTTL,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         deps.checks(),
	}, wizard, operator)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting lineacaptura", "addr", cfg.Server.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
