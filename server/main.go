package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/config"
	"github.com/phambaophuc/meal-analyzer/internal/http/handlers"
	"github.com/phambaophuc/meal-analyzer/internal/http/routes"
	"github.com/phambaophuc/meal-analyzer/internal/metrics"
	"github.com/phambaophuc/meal-analyzer/internal/services/analyzer"
	"github.com/phambaophuc/meal-analyzer/internal/services/ledger"
	"github.com/phambaophuc/meal-analyzer/internal/services/offline"
	"github.com/phambaophuc/meal-analyzer/internal/services/processor"
	"github.com/phambaophuc/meal-analyzer/internal/services/queue"
	"github.com/phambaophuc/meal-analyzer/internal/services/storage"
	"github.com/phambaophuc/meal-analyzer/internal/services/upload"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const workerCount = 2

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache storage and the offline shell
	cacheStorage, err := storage.GetStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize cache storage", zap.Error(err))
	}

	manager, err := offline.NewManager(cacheStorage, http.DefaultTransport, cfg.Cache.Origin, logger, offline.Options{
		OfflinePath:  cfg.Cache.OfflinePath,
		MaxEntrySize: cfg.Cache.MaxEntrySize,
	})
	if err != nil {
		logger.Fatal("Failed to initialize offline cache", zap.Error(err))
	}

	policy, err := offline.ParsePolicy(cfg.Cache.Policy)
	if err != nil {
		logger.Fatal("Invalid cache policy", zap.Error(err))
	}
	if err := manager.Start(ctx, cfg.Cache.Version, policy, cfg.Cache.Manifest); err != nil {
		// the gateway still proxies, just without offline support
		logger.Error("Failed to install shell cache", zap.String("generation", cfg.Cache.Version), zap.Error(err))
	}

	// Ledger and history
	var redisClient *redis.Client
	if cfg.Storage.LedgerBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	dailyLedger, history, err := ledger.New(cfg, redisClient)
	if err != nil {
		logger.Fatal("Failed to initialize ledger", zap.Error(err))
	}

	// Analysis events go through RabbitMQ when it is configured, straight
	// into the history otherwise.
	var publisher analyzer.EventPublisher = analyzer.PublisherFunc(history.Record)
	queueHealth := handlers.HealthCheck(handlers.NotConfigured)
	if cfg.RabbitMQ.URL != "" {
		queueService, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, history, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue service", zap.Error(err))
			// Continue without queue service for basic functionality
		} else {
			defer queueService.Close()
			publisher = queueService
			queueHealth = func(context.Context) string { return queueService.HealthCheck() }

			for i := 1; i <= workerCount; i++ {
				if err := queueService.StartWorker(ctx, i); err != nil {
					logger.Error("Failed to start worker", zap.Int("worker_id", i), zap.Error(err))
				}
			}
			if err := queueService.ExportDepth(); err != nil {
				logger.Warn("Failed to export queue depth", zap.Error(err))
			}
		}
	}

	// Upload pipeline. Its HTTP client goes through the manager too, which
	// never intercepts the cross-origin POST.
	uploadClient := upload.NewClient(&http.Client{Transport: manager}, logger, cfg.Upstream.Timeout)
	mealAnalyzer := analyzer.New(
		processor.NewImageProcessor(logger),
		uploadClient,
		dailyLedger,
		publisher,
		logger,
		analyzer.Options{
			Endpoint:     cfg.Upstream.URL,
			Deadline:     cfg.Upstream.Timeout,
			MaxDimension: cfg.Preprocess.MaxDimension,
			Quality:      cfg.Preprocess.Quality,
		},
	)

	// Initialize handlers
	origin, err := url.Parse(cfg.Cache.Origin)
	if err != nil {
		logger.Fatal("Invalid cache origin", zap.Error(err))
	}
	mealHandler := handlers.NewMealHandler(mealAnalyzer, dailyLedger, history, logger, cfg)
	systemHandler := handlers.NewSystemHandler(manager, map[string]handlers.HealthCheck{
		"cache_storage": handlers.CheckError(cacheStorage.Health),
		"ledger":        handlers.CheckError(dailyLedger.Health),
		"queue":         queueHealth,
	}, logger)
	gateway := handlers.NewShellGateway(origin, manager, logger)

	router := routes.NewRouter(mealHandler, systemHandler, gateway, cfg, logger)

	if cfg.Metrics.Addr != "" {
		go metrics.Server(cfg.Metrics.Addr, logger)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	manager.Drain()

	logger.Info("Server exited")
}
