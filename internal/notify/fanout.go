// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
)

// Fan-out defaults.
const (
	DefaultBatchSize     = 50
	DefaultFanOutTimeout = 5 * time.Minute
)

// FanOutConfig tunes a Dispatcher.
type FanOutConfig struct {
	// BatchSize is the number of recipients per batch task.
	BatchSize int

	// Timeout bounds how long FanOut waits. Tasks still running at the
	// deadline are not cancelled.
	Timeout time.Duration

	// MaxConcurrentBatches caps running batch tasks. 0 means one task per
	// batch with no cap.
	MaxConcurrentBatches int

	// RateLimit caps per-recipient deliveries per second across all
	// batches. 0 disables limiting.
	RateLimit float64
}

// DefaultFanOutConfig returns the production defaults.
func DefaultFanOutConfig() FanOutConfig {
	return FanOutConfig{
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultFanOutTimeout,
	}
}

// RecipientFunc delivers to one recipient.
type RecipientFunc func(ctx context.Context, recipientID string) error

// FanOutResult summarises a fan-out at the moment FanOut returned. When
// TimedOut is set, batches still running may change the real totals.
type FanOutResult struct {
	Batches    int
	Recipients int
	Delivered  int
	Failed     int
	TimedOut   bool
	Duration   time.Duration
}

// Dispatcher partitions a recipient sequence into fixed-size batches and
// runs each batch as its own goroutine, joining with a deadline.
type Dispatcher struct {
	cfg     FanOutConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher. Non-positive BatchSize and Timeout
// fall back to the defaults.
func NewDispatcher(logger *zerolog.Logger, cfg FanOutConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFanOutTimeout
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logging.Component(logger, "fanout"),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return d
}

type fanOutCounters struct {
	batches    atomic.Int64
	recipients atomic.Int64
	delivered  atomic.Int64
	failed     atomic.Int64
}

// FanOut calls perRecipient exactly once for every ID in recipients.
//
// A feeder goroutine reads the sequence and starts one task per batch.
// Each task walks its batch in order; a failing recipient is logged and
// the task moves on. FanOut returns when every task has finished or the
// timeout has elapsed, whichever comes first. Reading the sequence counts
// against the timeout too.
func (d *Dispatcher) FanOut(ctx context.Context, recipients iter.Seq[string], perRecipient RecipientFunc) FanOutResult {
	start := time.Now()
	counters := &fanOutCounters{}
	done := make(chan struct{})

	go d.feed(ctx, recipients, perRecipient, counters, done)

	timer := time.NewTimer(d.cfg.Timeout)
	defer timer.Stop()

	timedOut := false
	select {
	case <-done:
	case <-timer.C:
		timedOut = true
	}

	result := FanOutResult{
		Batches:    int(counters.batches.Load()),
		Recipients: int(counters.recipients.Load()),
		Delivered:  int(counters.delivered.Load()),
		Failed:     int(counters.failed.Load()),
		TimedOut:   timedOut,
		Duration:   time.Since(start),
	}
	metrics.RecordFanOut(result.Batches, result.Duration, timedOut)

	log := logging.Enrich(ctx, d.logger)
	if timedOut {
		log.Warn().Err(ErrFanOutTimeout).
			Dur("timeout", d.cfg.Timeout).
			Int("batches_started", result.Batches).
			Int("recipients_dispatched", result.Recipients).
			Int("delivered", result.Delivered).
			Int("failed", result.Failed).
			Msg("Fan-out did not finish in time, remaining batches continue in background")
		return result
	}

	log.Info().
		Int("batches", result.Batches).
		Int("recipients", result.Recipients).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Fan-out completed")
	return result
}

// feed partitions recipients and waits for every batch task before
// closing done.
func (d *Dispatcher) feed(ctx context.Context, recipients iter.Seq[string], perRecipient RecipientFunc, counters *fanOutCounters, done chan<- struct{}) {
	defer close(done)

	var (
		wg  sync.WaitGroup
		sem chan struct{}
	)
	if d.cfg.MaxConcurrentBatches > 0 {
		sem = make(chan struct{}, d.cfg.MaxConcurrentBatches)
	}

	launch := func(batch []string) {
		index := int(counters.batches.Add(1)) - 1
		counters.recipients.Add(int64(len(batch)))
		if sem != nil {
			sem <- struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			d.runBatch(ctx, index, batch, perRecipient, counters)
		}()
	}

	for batch := range chunk(recipients, d.cfg.BatchSize) {
		launch(batch)
	}

	wg.Wait()
}

// chunk groups seq into contiguous slices of size; the last may be shorter.
// Each yielded slice is freshly allocated and owned by the receiver.
func chunk(seq iter.Seq[string], size int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		batch := make([]string, 0, size)
		for id := range seq {
			batch = append(batch, id)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]string, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

func (d *Dispatcher) runBatch(ctx context.Context, index int, batch []string, perRecipient RecipientFunc, counters *fanOutCounters) {
	metrics.TrackBatch(true)
	defer metrics.TrackBatch(false)

	log := logging.Enrich(ctx, d.logger)
	for _, id := range batch {
		err := d.deliverOne(ctx, id, perRecipient)
		metrics.RecordFanOutRecipient(err)
		if err != nil {
			counters.failed.Add(1)
			log.Warn().Err(&BatchTaskError{Batch: index, RecipientID: id, Err: err}).
				Int("batch", index).
				Str("recipient_id", id).
				Msg("Broadcast delivery failed")
			continue
		}
		counters.delivered.Add(1)
	}
}

// deliverOne shields the batch from a panicking recipient function.
func (d *Dispatcher) deliverOne(ctx context.Context, id string, perRecipient RecipientFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return perRecipient(ctx, id)
}
