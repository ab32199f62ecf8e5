package outbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"kinkong/internal/notify"
	"kinkong/internal/storage"
)

// Default dispatcher configuration.
const (
	DefaultInterval  = 30 * time.Second
	DefaultBatchSize = 50
)

// Dispatcher drains pending outbox events and hands them to notifiers.
// Delivery is at-least-once: a crash between notify and mark redelivers
// the event, and consumers deduplicate on event ID. A failed delivery
// increments the attempt counter and leaves the event pending for the
// next drain.
type Dispatcher struct {
	store     storage.OutboxStore
	notifier  notify.Notifier
	logger    *log.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// DispatcherOptions configures Dispatcher.
type DispatcherOptions struct {
	Store     storage.OutboxStore
	Notifier  notify.Notifier
	Logger    *log.Logger
	Interval  time.Duration
	BatchSize int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       now,
	}
}

// Dispatch performs one drain pass. Returns the number of delivered
// events.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	pending, err := d.store.PickPending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("pick pending events: %w", err)
	}

	delivered := 0
	for _, ev := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		if err := d.store.RecordAttempt(ctx, ev.EventID); err != nil {
			d.logger.Printf("[outbox] record attempt %s: %v", ev.EventID, err)
			continue
		}

		if err := d.notifier.Notify(ctx, ev); err != nil {
			d.logger.Printf("[outbox] deliver %s (attempt %d): %v", ev.EventID, ev.Attempts+1, err)
			continue
		}

		if err := d.store.MarkDelivered(ctx, ev.EventID, d.now()); err != nil {
			// The event stays pending and will be redelivered.
			d.logger.Printf("[outbox] mark delivered %s: %v", ev.EventID, err)
			continue
		}
		delivered++
	}

	return delivered, nil
}

// Run drains the outbox on the configured interval until the context is
// canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Printf("[outbox] dispatcher started, interval=%s", d.interval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("[outbox] dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if n, err := d.Dispatch(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.logger.Printf("[outbox] dispatch cycle failed: %v", err)
			} else if n > 0 {
				d.logger.Printf("[outbox] delivered %d events", n)
			}
		}
	}
}
