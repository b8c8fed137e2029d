package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/joelkehle/invoice-roi/internal/config"
	"github.com/joelkehle/invoice-roi/internal/httpapi"
	"github.com/joelkehle/invoice-roi/internal/logging"
	"github.com/joelkehle/invoice-roi/internal/ratelimit"
	"github.com/joelkehle/invoice-roi/internal/report"
	"github.com/joelkehle/invoice-roi/internal/scenario"
	"github.com/joelkehle/invoice-roi/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: config.yaml in . or ./configs)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      version,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()
	logger.Info("scenario store ready", zap.String("backend", cfg.Store.Backend))

	archive, err := report.NewArchive(cfg.Report.Dir)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cfg.Report, archive, logger)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := httpapi.NewServer(httpapi.Deps{
		Store:    scenario.WithTracing(store, otel.Tracer("github.com/joelkehle/invoice-roi/internal/scenario")),
		Renderer: renderer,
		Archive:  archive,
		Limiter:  limiter,
		Metrics:  telemetry.NewMetrics(reg),
		Logger:   logger,
	}, httpapi.Options{
		WebDir:      cfg.Server.WebDir,
		Production:  cfg.Server.Production(),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("roi-server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (scenario.Store, error) {
	sc := scenario.Config{}
	switch cfg.Backend {
	case "memory":
		return scenario.NewMemoryStore(sc), nil
	case "file":
		return scenario.NewFileStore(cfg.Path, sc)
	case "sqlite":
		if err := ensureParentDir(cfg.Path); err != nil {
			return nil, err
		}
		return scenario.NewSQLiteStore(cfg.Path, sc)
	case "postgres":
		return scenario.NewPostgresStore(ctx, cfg.DSN, sc)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func newRenderer(cfg config.ReportConfig, archive *report.Archive, logger *zap.Logger) (report.Renderer, error) {
	chromium := report.NewChromiumRenderer(archive, cfg.ChromePath)
	switch cfg.Format {
	case "pdf":
		if !chromium.Available() {
			return nil, errors.New("report.format is pdf but no Chrome or Chromium binary was found")
		}
		return chromium, nil
	case "html":
		return report.NewHTMLRenderer(archive), nil
	default:
		if chromium.Available() {
			return chromium, nil
		}
		logger.Warn("no Chrome or Chromium found, reports will be rendered as HTML")
		return report.NewHTMLRenderer(archive), nil
	}
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	if !cfg.RateLimitActive() {
		return nil, func() {}, nil
	}
	rl := cfg.RateLimit
	if rl.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         rl.Redis.Address,
			Password:     rl.Redis.Password,
			DB:           rl.Redis.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("rate limiting via redis",
			zap.String("address", rl.Redis.Address),
			zap.Int("requests", rl.Requests),
			zap.Duration("window", rl.Window),
		)
		return ratelimit.NewRedisLimiter(client, rl.Redis.Prefix, rl.Requests, rl.Window), func() { client.Close() }, nil
	}
	logger.Info("rate limiting in memory", zap.Int("requests", rl.Requests), zap.Duration("window", rl.Window))
	limiter := ratelimit.NewMemoryLimiter(rl.Requests, rl.Window, rl.MaxKeys)
	return limiter, limiter.Stop, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
