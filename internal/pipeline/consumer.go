package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"contextd/internal/metrics"
	"contextd/internal/queue"
)

// Consumer reads triggers off the queue and runs session drain passes with
// bounded concurrency. The receive loop is supervised: if it exits with a
// panic it is restarted with backoff until Stop.
type Consumer struct {
	queue     *queue.Queue
	processor *SessionProcessor
	metrics   *metrics.Metrics
	workers   int
	logger    zerolog.Logger

	wg      sync.WaitGroup
	running atomic.Bool

	// loop and restartDelay are swapped out in tests to drive the
	// supervisor without a real channel crash.
	loop         func(ctx context.Context) (clean bool)
	restartDelay time.Duration
}

// NewConsumer creates a consumer with the given concurrency limit.
func NewConsumer(q *queue.Queue, p *SessionProcessor, m *metrics.Metrics, workers int, logger zerolog.Logger) *Consumer {
	if workers <= 0 {
		workers = 16
	}
	c := &Consumer{
		queue:        q,
		processor:    p,
		metrics:      m,
		workers:      workers,
		logger:       logger.With().Str("component", "consumer").Logger(),
		restartDelay: time.Second,
	}
	c.loop = c.receiveLoop
	return c
}

// Start launches the supervised receive loop.
func (c *Consumer) Start(ctx context.Context) {
	if c.running.Swap(true) {
		return
	}

	c.wg.Add(1)
	go c.supervise(ctx)

	c.logger.Info().Int("workers", c.workers).Msg("consumer started")
}

// Stop waits for the receive loop to drain buffered triggers and exit.
// Close the queue before calling Stop; cancelling the context passed to
// Start aborts in-flight passes instead of draining.
func (c *Consumer) Stop() {
	if !c.running.Swap(false) {
		return
	}
	c.wg.Wait()
	c.logger.Info().Msg("consumer stopped")
}

// supervise restarts the receive loop after a panic, with backoff. A clean
// return (queue closed or context cancelled) ends supervision.
func (c *Consumer) supervise(ctx context.Context) {
	defer c.wg.Done()

	backoff := c.restartDelay
	for {
		clean := c.loop(ctx)
		if clean {
			return
		}

		c.metrics.ConsumerRestarts.Inc()
		c.logger.Error().Dur("backoff", backoff).Msg("receive loop crashed, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// receiveLoop drains the trigger channel, fanning passes out to a bounded
// worker pool. Returns true on clean shutdown, false if it panicked.
func (c *Consumer) receiveLoop(ctx context.Context) (clean bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("panic in receive loop")
			clean = false
		}
	}()

	sem := make(chan struct{}, c.workers)
	var passes sync.WaitGroup
	defer passes.Wait()

	for {
		select {
		case <-ctx.Done():
			return true
		case trig, ok := <-c.queue.Receive():
			if !ok {
				return true
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return true
			}

			passes.Add(1)
			go func(trig queue.Trigger) {
				defer passes.Done()
				defer func() { <-sem }()
				c.handle(ctx, trig)
			}(trig)
		}
	}
}

// handle runs one drain pass. Panics and errors are contained per trigger.
func (c *Consumer) handle(ctx context.Context, trig queue.Trigger) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.TriggersTotal.WithLabelValues("panic").Inc()
			c.logger.Error().
				Interface("panic", r).
				Str("session_id", trig.SessionID.String()).
				Msg("panic while processing trigger")
		}
	}()

	n, err := c.processor.Process(ctx, trig.SessionID)
	if err != nil {
		c.metrics.TriggersTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).
			Str("trigger_id", trig.ID.String()).
			Str("session_id", trig.SessionID.String()).
			Msg("trigger processing failed")
		return
	}

	c.metrics.TriggersTotal.WithLabelValues("processed").Inc()
	c.logger.Debug().
		Str("trigger_id", trig.ID.String()).
		Str("session_id", trig.SessionID.String()).
		Int("messages", n).
		Dur("queue_delay", time.Since(trig.EnqueuedAt)).
		Msg("trigger processed")
}
