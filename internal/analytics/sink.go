// Package analytics ships search logs off the request path and answers
// route popularity queries.  Recording never blocks the caller and never
// reports failure to it: a full queue drops the entry and a failed write
// is logged and counted.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/metrics"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// Writer persists one search log entry.
type Writer interface {
	Write(ctx context.Context, entry model.SearchLog) error
}

// Recorder is the request-side view of a Sink.
type Recorder interface {
	Record(entry model.SearchLog)
}

// Sink is a bounded queue drained by a fixed pool of workers.
type Sink struct {
	writer  Writer
	log     *logger.Logger
	queue   chan model.SearchLog
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewSink builds a sink over w sized by cfg.  Call Start (or Run) before
// recording; entries recorded earlier wait in the queue.
func NewSink(w Writer, cfg config.SearchLogConfig, log *logger.Logger) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &Sink{
		writer:  w,
		log:     log,
		queue:   make(chan model.SearchLog, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.WriteTimeout,
	}
}

// Record enqueues entry without blocking.  The entry is dropped when the
// queue is full or the sink has been closed.
func (s *Sink) Record(entry model.SearchLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.SearchLogEvents.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case s.queue <- entry:
		metrics.SearchLogEvents.WithLabelValues("enqueued").Inc()
		metrics.SearchLogQueueDepth.Set(float64(len(s.queue)))
	default:
		metrics.SearchLogEvents.WithLabelValues("dropped").Inc()
		s.log.Warn(context.Background(), "search log queue full, dropping entry", nil)
	}
}

// Start launches the workers.  It is safe to call more than once.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work()
	}
}

// Close stops accepting entries and waits for the workers to drain the
// queue.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	started := s.started
	s.mu.Unlock()

	if !started {
		// Nobody will drain the queue; discard what is left.
		for range s.queue {
			metrics.SearchLogEvents.WithLabelValues("dropped").Inc()
		}
		return
	}
	s.wg.Wait()
	metrics.SearchLogQueueDepth.Set(0)
}

// Run starts the sink and blocks until ctx is done, then drains it.
func (s *Sink) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Close()
	return nil
}

func (s *Sink) work() {
	defer s.wg.Done()
	for entry := range s.queue {
		metrics.SearchLogQueueDepth.Set(float64(len(s.queue)))
		if err := s.write(entry); err != nil {
			metrics.SearchLogEvents.WithLabelValues("failed").Inc()
			s.log.Warn(context.Background(), "search log write failed", err)
			continue
		}
		metrics.SearchLogEvents.WithLabelValues("written").Inc()
	}
}

func (s *Sink) write(entry model.SearchLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search log writer panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writer.Write(ctx, entry)
}
