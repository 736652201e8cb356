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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/agent"
	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
	"github.com/lottostack/prediction-api/internal/handlers"
	"github.com/lottostack/prediction-api/internal/logic"
	"github.com/lottostack/prediction-api/internal/predictor"
	"github.com/lottostack/prediction-api/internal/store"
	"github.com/lottostack/prediction-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeClient := store.NewClient(store.Config{
		BaseURL:    cfg.StoreBaseURL,
		AppID:      cfg.StoreAppID,
		AdminToken: cfg.StoreAdminToken,
		Timeout:    cfg.StoreTimeout,
	})

	var rdb freq.RedisClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("invalid REDIS_URL", "error", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			sugar.Warnw("redis unreachable, frequency cache disabled", "error", err)
		} else {
			rdb = client
			defer client.Close()
		}
	}

	analyzer := freq.NewAnalyzer(storeClient, rdb, cfg.CacheTTL, logger)
	drlAgent := agent.New(storeClient, analyzer, cfg, logger)

	predictors := []predictor.Predictor{
		predictor.NewBoostedPredictor(storeClient, analyzer),
		predictor.NewForestPredictor(storeClient, analyzer),
		predictor.NewMarkovPredictor(storeClient, analyzer),
		predictor.NewDensityPredictor(storeClient, analyzer),
		drlAgent,
	}

	generation := logic.NewGenerationService(storeClient, predictors, cfg, logger)
	reconcile := logic.NewReconcileService(storeClient, drlAgent, logger)
	stats := logic.NewStatsService(storeClient, analyzer, logger)

	queue := worker.NewQueue(worker.QueueConfig{
		Size:    cfg.QueueSize,
		Timeout: cfg.AgentTimeout + cfg.StoreTimeout,
		Logger:  logger,
	})
	queue.Start(ctx)

	h := handlers.New(handlers.Config{
		Queue:      queue,
		Store:      storeClient,
		Logger:     logger,
		Generation: generation,
		Reconcile:  reconcile,
		Stats:      stats,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}

	queue.Stop()
	sugar.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
