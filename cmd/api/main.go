package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/extraitexto-backend/api/routes"
	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/internal/extraction"
	"github.com/angelmondragon/extraitexto-backend/internal/ocr"
	"github.com/angelmondragon/extraitexto-backend/internal/ocr/pdftext"
	"github.com/angelmondragon/extraitexto-backend/internal/ocr/tesseract"
	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/instance"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/metrics"
	"github.com/angelmondragon/extraitexto-backend/pkg/migrate"
	"github.com/angelmondragon/extraitexto-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient := db.Unconfigured("")
	if cfg.DB.Configured() {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
	} else {
		logg.Warn(ctx, "database not configured, entitlement calls will fail with dependency errors")
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	var redisStore routes.RedisStore
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return fmt.Errorf("bootstrap redis: %w", redisErr)
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		redisStore = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, rate limiting and idempotency disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	entMetrics := metrics.NewEntitlementMetrics(registry)

	repo := entitlements.NewRepository(dbClient)
	agg, err := entitlements.NewAggregator(repo, time.Now)
	if err != nil {
		return err
	}
	evaluator, err := entitlements.NewEvaluator(entitlements.EvaluatorParams{
		Repo:       repo,
		Aggregator: agg,
		Usage:      cfg.Usage,
		Metrics:    entMetrics,
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	recorder, err := entitlements.NewRecorder(entitlements.RecorderParams{
		Repo:       repo,
		Aggregator: agg,
		Metrics:    entMetrics,
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	catalog, err := entitlements.NewCatalog(repo)
	if err != nil {
		return err
	}

	engine, err := ocrEngine(cfg.OCR)
	if err != nil {
		return err
	}
	extractionService, err := extraction.NewService(extraction.ServiceParams{
		Checker:  evaluator,
		Recorder: recorder,
		Engine:   engine,
		Upload:   cfg.Upload,
		OCR:      cfg.OCR,
		Usage:    cfg.Usage,
		Metrics:  entMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.GetID(),
		"ocr_engine": engine.Name(),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:           dbClient,
			Redis:        redisStore,
			Gatherer:     registry,
			HTTPMetrics:  metrics.NewHTTPMetrics(registry),
			Catalog:      catalog,
			Entitlements: evaluator,
			Usage:        agg,
			Extractions:  extractionService,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func ocrEngine(cfg config.OCRConfig) (ocr.Engine, error) {
	switch cfg.Engine {
	case "", tesseract.EngineName:
		return ocr.NewRouter(tesseract.New(cfg.TessdataPrefix), map[string]ocr.Engine{
			pdftext.ContentType: pdftext.New(cfg.PDFMaxPages),
		})
	default:
		return nil, fmt.Errorf("unsupported ocr engine %q", cfg.Engine)
	}
}
