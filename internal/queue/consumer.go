package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// SearchLogHandler stores one decoded search log.
type SearchLogHandler func(ctx context.Context, entry model.SearchLog) error

// ConsumerConfig addresses the broker queue to consume.
type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// StartSearchLogConsumer connects to RabbitMQ, declares the search log
// queue (durable) and hands every message to handle.  It reconnects with
// exponential backoff until ctx is cancelled, which is the only way it
// returns.  Messages the handler rejects are dropped, not requeued, so a
// poison message cannot spin the loop.
func StartSearchLogConsumer(ctx context.Context, cfg ConsumerConfig, handle SearchLogHandler, log *logger.Logger) error {
	if cfg.Queue == "" {
		cfg.Queue = SearchLoggedQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	ctx = log.WithFields(ctx, map[string]any{"component": "search-log-consumer", "queue": cfg.Queue})

	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn(ctx, fmt.Sprintf("dial broker failed; retrying in %s", backoff), err)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(ctx, "consume loop ended; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, handle SearchLogHandler, log *logger.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		log.Warn(ctx, "set QoS failed", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleDelivery(ctx, d.Body, handle); err != nil {
				log.Warn(ctx, "handle message failed", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleDelivery(ctx context.Context, body []byte, handle SearchLogHandler) error {
	entry, err := DecodeSearchLogged(body)
	if err != nil {
		return err
	}
	return handle(ctx, entry)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
