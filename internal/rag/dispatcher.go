package rag

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/corpusd/corpusd/internal/sink"
)

// Deliverer posts a payload to the delivery sink.
// *sink.Client satisfies this.
type Deliverer interface {
	Deliver(ctx context.Context, payload any) error
}

// DispatcherConfig tunes the background delivery behavior.
type DispatcherConfig struct {
	// MaxRetries bounds retry attempts after the first failure.
	MaxRetries uint64
	// InitialBackoff is the first retry delay; subsequent delays grow
	// exponentially.
	InitialBackoff time.Duration
	// RatePerSecond caps outbound deliveries across all requests.
	RatePerSecond int
}

// Dispatcher delivers payloads to the sink asynchronously.
//
// Dispatch never blocks the caller on sink latency: each payload gets its
// own goroutine, a shared rate limit, and bounded exponential-backoff
// retries. Rejections (4xx) are never retried. Failures are logged and
// dropped; delivery is best effort by contract.
type Dispatcher struct {
	deliverer Deliverer
	limiter   *rate.Limiter
	cfg       DispatcherConfig
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. logger may be nil.
func NewDispatcher(deliverer Deliverer, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RatePerSecond < 1 {
		cfg.RatePerSecond = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		deliverer: deliverer,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond),
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Dispatch queues the payload for background delivery and returns
// immediately. The dispatcher's own lifetime, not the request context,
// governs the delivery: the caller may disconnect long before the sink
// responds.
func (d *Dispatcher) Dispatch(payload *Payload) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(payload)
	}()
}

func (d *Dispatcher) deliver(payload *Payload) {
	if err := d.limiter.Wait(d.ctx); err != nil {
		d.logger.Warn("dispatch abandoned before delivery",
			"request_id", payload.RequestID, "error", err)
		return
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponential(d.cfg.InitialBackoff), d.cfg.MaxRetries),
		d.ctx,
	)

	attempts := 0
	operation := func() error {
		attempts++
		err := d.deliverer.Deliver(d.ctx, payload)
		if err == nil {
			return nil
		}
		if errors.Is(err, sink.ErrRejected) {
			// retrying an identical payload cannot succeed
			return backoff.Permanent(err)
		}
		d.logger.Debug("delivery attempt failed",
			"request_id", payload.RequestID, "attempt", attempts, "error", err)
		return err
	}

	if err := backoff.Retry(operation, policy); err != nil {
		d.logger.Error("dispatch failed",
			"request_id", payload.RequestID,
			"tenant_id", payload.TenantID,
			"collection_id", payload.CollectionID,
			"attempts", attempts,
			"error", err)
		return
	}

	d.logger.Info("payload dispatched",
		"request_id", payload.RequestID, "attempts", attempts,
		"candidates", len(payload.Candidates))
}

// Close waits for every accepted payload to finish its bounded delivery
// attempts, then releases the dispatcher. A payload accepted before Close
// is never abandoned without at least one attempt. Dispatch must not be
// called after Close.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	d.cancel()
}

func newExponential(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	return b
}
