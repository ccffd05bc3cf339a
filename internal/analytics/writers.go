package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/queue"
)

// Redis keys used by route analytics.
const (
	RoutesKey        = "analytics:routes"
	SearchesTotalKey = "analytics:searches:total"
	RecentKey        = "analytics:searches:recent"
	recentKeep       = 1000
)

// AMQPWriter publishes search logs to a durable RabbitMQ queue.  The
// connection and channel are opened lazily, reused across writes and
// reopened after a failure.
type AMQPWriter struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPWriter(url, queueName string) *AMQPWriter {
	if queueName == "" {
		queueName = queue.SearchLoggedQueue
	}
	return &AMQPWriter{url: url, queue: queueName}
}

// Write publishes entry as a persistent message on the default exchange.
func (w *AMQPWriter) Write(ctx context.Context, entry model.SearchLog) error {
	body, err := queue.EncodeSearchLogged(entry)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	ch, err := w.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		w.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		w.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (w *AMQPWriter) channel() (*amqp.Channel, error) {
	if w.ch != nil && !w.ch.IsClosed() {
		return w.ch, nil
	}
	w.reset()
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	w.conn, w.ch = conn, ch
	return ch, nil
}

func (w *AMQPWriter) reset() {
	if w.ch != nil {
		_ = w.ch.Close()
		w.ch = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

// Close releases the broker connection.
func (w *AMQPWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	return nil
}

// RedisWriter aggregates search logs directly into Redis: a sorted set of
// route counts, a running total and a capped list of recent entries.
type RedisWriter struct {
	rdb *redis.Client
}

func NewRedisWriter(rdb *redis.Client) *RedisWriter { return &RedisWriter{rdb: rdb} }

func (w *RedisWriter) Write(ctx context.Context, entry model.SearchLog) error {
	body, err := queue.EncodeSearchLogged(entry)
	if err != nil {
		return err
	}
	pipe := w.rdb.TxPipeline()
	stageSearchLog(ctx, pipe, entry, body)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis analytics write: %w", err)
	}
	return nil
}

// stageSearchLog queues the writes for one entry.  Searches missing a
// source or destination count toward the total but not the route ranking.
func stageSearchLog(ctx context.Context, pipe redis.Pipeliner, entry model.SearchLog, body []byte) {
	if entry.HasRoute() {
		pipe.ZIncrBy(ctx, RoutesKey, 1, entry.Route())
	}
	pipe.Incr(ctx, SearchesTotalKey)
	pipe.LPush(ctx, RecentKey, body)
	pipe.LTrim(ctx, RecentKey, 0, recentKeep-1)
}

// LogWriter emits search logs as structured log lines.  It is the
// fallback when neither RabbitMQ nor Redis is configured.
type LogWriter struct {
	log *logger.Logger
}

func NewLogWriter(log *logger.Logger) *LogWriter { return &LogWriter{log: log} }

func (w *LogWriter) Write(ctx context.Context, entry model.SearchLog) error {
	ev := w.log.Zerolog(ctx).Info().
		Str("endpoint", entry.Endpoint).
		Str("route", entry.Route()).
		Interface("params", entry.Params).
		Float64("execution_time_ms", entry.ElapsedMS).
		Time("searched_at", entry.Timestamp)
	if entry.UserID != nil {
		ev = ev.Uint64("user_id", *entry.UserID)
	}
	ev.Msg("train search")
	return nil
}
