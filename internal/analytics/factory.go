package analytics

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
)

// NewWriter picks the writer named by cfg.Sink.  The redis sink falls back
// to logging when no Redis client is available.
func NewWriter(cfg config.SearchLogConfig, rdb *redis.Client, log *logger.Logger) Writer {
	switch cfg.Sink {
	case config.SinkAMQP:
		return NewAMQPWriter(cfg.AMQPURL, cfg.Queue)
	case config.SinkRedis:
		if rdb != nil {
			return NewRedisWriter(rdb)
		}
		log.Warn(context.Background(), "redis unavailable, search logs go to the application log", nil)
	}
	return NewLogWriter(log)
}
