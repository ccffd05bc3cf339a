package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/database"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/seed"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

// Seeds sample trains into MySQL and pushes synthetic search logs through
// the configured search log writer.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{ServiceName: "seed", Level: logger.ParseLevel(cfg.LogLevel)})
	ctx = logg.WithField(ctx, "env", cfg.Env)

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	requireResource(ctx, logg, "database", err)
	defer db.Close()

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logg.Warn(ctx, "redis unavailable", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	trains := service.NewTrainService(repository.NewSQLStore(db, cfg.Booking.LockTimeout))
	created, existing, err := seed.Trains(ctx, trains, time.Now())
	requireResource(ctx, logg, "trains", err)
	logg.Info(logg.WithFields(ctx, map[string]any{"created": created, "existing": existing}), "trains seeded")

	writer := analytics.NewWriter(config.LoadSearchLogConfig(), rdb, logg)
	if c, ok := writer.(io.Closer); ok {
		defer c.Close()
	}
	now := time.Now()
	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	n, err := seed.SearchLogs(ctx, writer, now, rng)
	requireResource(ctx, logg, "search logs", err)
	logg.Info(logg.WithField(ctx, "written", n), "search logs seeded")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
