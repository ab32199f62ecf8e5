package notify

import (
	"context"
	"errors"

	"kinkong/internal/domain"
)

// Notifier delivers outbox events to an external channel. Events can
// arrive more than once; implementations must tolerate duplicates keyed
// by EventID.
type Notifier interface {
	Notify(ctx context.Context, ev *domain.OutboxEvent) error
}

// Multi fans an event out to several notifiers. All notifiers are
// attempted; their errors are joined.
type Multi []Notifier

// Compile-time interface check.
var _ Notifier = (Multi)(nil)

// Notify delivers the event to every notifier.
func (m Multi) Notify(ctx context.Context, ev *domain.OutboxEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
