package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
)

const (
	laneBuffer    = 64
	commitTimeout = 5 * time.Second
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Deduper is an offset-level duplicate filter such as idempotency.Store.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Handler processes one message. Returning an error wrapped with Drop or
// DeadLetter skips retries; any other error is retried.
type Handler func(ctx context.Context, msg kafka.Message) error

type RetryPolicy struct {
	MaxRetries uint64
	Initial    time.Duration
	Max        time.Duration
}

// Consumer fans messages out to a fixed set of lanes chosen by key hash, so
// different keys are handled concurrently and one key is handled in order.
type Consumer struct {
	name    string
	log     *slog.Logger
	reader  Reader
	handler Handler
	dlq     *DeadLetterPublisher
	idem    Deduper
	lanes   int
	retry   RetryPolicy
	tracker *offsetTracker

	commitMu sync.Mutex
}

type Option func(*Consumer)

func WithLanes(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.lanes = n
		}
	}
}

func WithRetry(p RetryPolicy) Option {
	return func(c *Consumer) { c.retry = p }
}

func WithDeadLetter(p *DeadLetterPublisher) Option {
	return func(c *Consumer) { c.dlq = p }
}

func WithDeduper(d Deduper) Option {
	return func(c *Consumer) { c.idem = d }
}

func NewConsumer(name string, log *slog.Logger, reader Reader, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{
		name:    name,
		log:     log.With("consumer", name),
		reader:  reader,
		handler: handler,
		lanes:   1,
		retry:   RetryPolicy{MaxRetries: 3, Initial: time.Second, Max: 10 * time.Second},
		tracker: newOffsetTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	g, gctx := errgroup.WithContext(ctx)
	lanes := make([]chan kafka.Message, c.lanes)
	for i := range lanes {
		lane := make(chan kafka.Message, laneBuffer)
		lanes[i] = lane
		g.Go(func() error {
			c.drain(gctx, lane)
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		for {
			msg, err := c.reader.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("fetch: %w", err)
			}
			c.tracker.track(msg)
			select {
			case lanes[c.laneFor(msg.Key)] <- msg:
			case <-gctx.Done():
				return nil
			}
		}
	})

	c.log.Info("consumer started", "lanes", c.lanes)
	err := g.Wait()
	c.log.Info("consumer stopped")
	return err
}

func (c *Consumer) laneFor(key []byte) int {
	if c.lanes == 1 {
		return 0
	}
	return int(xxhash.Sum64(key) % uint64(c.lanes))
}

func (c *Consumer) drain(ctx context.Context, lane <-chan kafka.Message) {
	for msg := range lane {
		if ctx.Err() != nil {
			continue
		}
		if c.process(ctx, msg) {
			c.complete(ctx, msg)
		}
	}
}

// process reports whether msg is settled and may be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	var key string
	if c.idem != nil {
		key = c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		switch {
		case err != nil:
			c.log.Warn("idempotency check failed", "key", key, "err", err)
		case seen:
			c.log.Info("duplicate message skipped", "key", key)
			metrics.Messages.WithLabelValues(c.name, "duplicate").Inc()
			return true
		}
	}

	err := c.handle(ctx, msg)
	switch {
	case err == nil:
		metrics.Messages.WithLabelValues(c.name, "handled").Inc()
	case ctx.Err() != nil:
		return false
	case IsDrop(err):
		c.log.Warn("malformed message dropped", "topic", msg.Topic, "offset", msg.Offset, "key", string(msg.Key), "err", err)
		metrics.Messages.WithLabelValues(c.name, "dropped").Inc()
	default:
		reason := ReasonExhausted
		if IsDeadLetter(err) {
			reason = ReasonRejected
		}
		if !c.deadLetter(ctx, msg, reason, err) {
			return false
		}
		metrics.Messages.WithLabelValues(c.name, "dead_lettered").Inc()
	}

	if c.idem != nil {
		if err := c.idem.Mark(ctx, key); err != nil {
			c.log.Warn("idempotency mark failed", "key", key, "err", err)
		}
	}
	return true
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.Initial
	b.MaxInterval = c.retry.Max
	b.MaxElapsedTime = 0
	b.Reset()

	op := func() error {
		err := c.handler(ctx, msg)
		if err != nil && (IsDrop(err) || IsDeadLetter(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.Retries.WithLabelValues(c.name).Inc()
		c.log.Warn("handler failed, retrying", "key", string(msg.Key), "offset", msg.Offset, "wait", wait, "err", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, c.retry.MaxRetries), ctx), notify)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, reason string, cause error) bool {
	if c.dlq == nil {
		c.log.Error("message discarded without dead-letter sink", "topic", msg.Topic, "offset", msg.Offset, "reason", reason, "err", cause)
		return true
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.Initial
	b.MaxInterval = c.retry.Max
	b.MaxElapsedTime = 0
	b.Reset()

	// The lane blocks here until the message is parked, so the partition
	// never commits past it.
	op := func() error { return c.dlq.Publish(ctx, msg, reason, cause) }
	notify := func(err error, wait time.Duration) {
		c.log.Error("dead letter publish failed, retrying", "topic", msg.Topic, "offset", msg.Offset, "wait", wait, "err", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		c.log.Error("dead letter publish abandoned", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		return false
	}
	return true
}

func (c *Consumer) complete(ctx context.Context, msg kafka.Message) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	commit, ok := c.tracker.done(msg)
	if !ok {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(cctx, commit); err != nil {
		c.log.Error("commit failed", "topic", commit.Topic, "partition", commit.Partition, "offset", commit.Offset, "err", err)
	}
}
