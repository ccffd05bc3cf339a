package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/database"
	"github.com/iliyamo/train-seat-booking/internal/handler"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/router"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

const serviceName = "train-booking-api"

// redisPinger adapts a Redis client to the readiness probe.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
	})
	ctx = logg.WithField(ctx, "env", cfg.Env)

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	requireResource(ctx, logg, "database", err)
	defer db.Close()

	ready := map[string]handler.Pinger{"mysql": db}

	// Redis is optional: without it rate limiting, caching and route
	// analytics are disabled and bookings are unaffected.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logg.Warn(ctx, "redis unavailable; rate limiting, cache and route analytics disabled", err)
		rdb = nil
	} else {
		defer rdb.Close()
		ready["redis"] = redisPinger{rdb: rdb}
	}

	var stats handler.RouteStatsReader
	if rdb != nil {
		stats = analytics.NewRouteStats(rdb)
	}

	searchCfg := config.LoadSearchLogConfig()
	writer := analytics.NewWriter(searchCfg, rdb, logg)
	if c, ok := writer.(io.Closer); ok {
		defer c.Close()
	}
	sink := analytics.NewSink(writer, searchCfg, logg)

	store := repository.NewSQLStore(db, cfg.Booking.LockTimeout)
	trains := service.NewTrainService(store)
	bookings := service.NewBookingService(store, cfg.Booking, logg)

	e := router.NewServer(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       logg,
		Redis:     rdb,
		Ready:     ready,
		Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), logg),
		Bookings:  handler.NewBookingHandler(bookings, logg),
		Trains:    handler.NewTrainHandler(trains, logg),
		Search:    handler.NewSearchHandler(trains, logg),
		Analytics: handler.NewAnalyticsHandler(stats, logg),
		SearchLog: sink,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error {
		addr := ":" + cfg.Port
		logg.Info(logg.WithField(ctx, "addr", addr), "listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "server stopped with error", err)
		os.Exit(1)
	}
	logg.Info(ctx, "server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
