package sim

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"vehicle-sim/internal/logging"
)

const (
	defaultRetryAttempts = 5
	defaultRetryInitial  = 100 * time.Millisecond
	defaultRetryMax      = 5 * time.Second
)

// RetryPublisher retries failed publishes with jittered exponential backoff.
// Context cancellation is never retried.
type RetryPublisher struct {
	next       Publisher
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewRetryPublisher wraps next. maxRetries <= 0 uses the default.
func NewRetryPublisher(next Publisher, maxRetries int) *RetryPublisher {
	if maxRetries <= 0 {
		maxRetries = defaultRetryAttempts
	}
	return &RetryPublisher{
		next:       next,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultRetryInitial
			b.MaxInterval = defaultRetryMax
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Publish sends msg, retrying transient failures.
func (p *RetryPublisher) Publish(ctx context.Context, msg Message) error {
	return p.retry(ctx, func() error { return p.next.Publish(ctx, msg) }, 1)
}

func (p *RetryPublisher) retry(ctx context.Context, publish func() error, n int) error {
	log := logging.FromContext(ctx)
	op := func() error {
		err := publish()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		log.Warn("publish failed, retrying", "messages", n, "wait", wait, "err", err)
	})
}

// PublishBatch retries the whole batch for sinks that write batches
// atomically. Other sinks are retried message by message so delivered
// messages are not sent again.
func (p *RetryPublisher) PublishBatch(ctx context.Context, msgs []Message) error {
	if bp, ok := p.next.(batchPublisher); ok {
		return p.retry(ctx, func() error { return bp.PublishBatch(ctx, msgs) }, len(msgs))
	}
	for _, m := range msgs {
		if err := p.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the wrapped publisher when it holds resources.
func (p *RetryPublisher) Close() error {
	if c, ok := p.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
