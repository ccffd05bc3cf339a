package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/queue"
)

// The worker drains search logs published by the API and folds them into
// the Redis route counters served by /v1/analytics/top-routes.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	})

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := rdb.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	searchCfg := config.LoadSearchLogConfig()
	writer := analytics.NewRedisWriter(rdb)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logg.Info(runCtx, "analytics worker ready")

	err = queue.StartSearchLogConsumer(runCtx, queue.ConsumerConfig{
		URL:   searchCfg.AMQPURL,
		Queue: searchCfg.Queue,
	}, writer.Write, logg)
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
