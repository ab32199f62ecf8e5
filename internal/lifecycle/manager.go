package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/idhash"
	"kinkong/internal/marketdata"
	"kinkong/internal/observability"
	"kinkong/internal/query"
	"kinkong/internal/simulator"
	"kinkong/internal/storage"
)

// DefaultPollInterval is the default cycle interval.
const DefaultPollInterval = time.Minute

// Manager drives signals through their lifecycle. Each poll cycle
// activates, expires or fails PENDING signals, and replays price history
// through the simulator to close ACTIVE ones. Per-signal failures are
// logged and skipped so one bad signal never stalls the cycle.
type Manager struct {
	signals storage.SignalStore
	history storage.StatusHistoryStore
	outbox  storage.OutboxStore
	prices  marketdata.PriceSource
	metrics *observability.Metrics
	logger  *log.Logger

	pollInterval time.Duration
	now          func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Signals storage.SignalStore
	History storage.StatusHistoryStore
	Outbox  storage.OutboxStore
	Prices  marketdata.PriceSource
	Metrics *observability.Metrics
	Logger  *log.Logger

	PollInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewManager creates a lifecycle manager.
func NewManager(opts ManagerOptions) *Manager {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		signals:      opts.Signals,
		history:      opts.History,
		outbox:       opts.Outbox,
		prices:       opts.Prices,
		metrics:      metrics,
		logger:       logger,
		pollInterval: pollInterval,
		now:          now,
	}
}

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	Pending    int
	Active     int
	Activated  int
	Completed  int
	Stopped    int
	Expired    int
	Failed     int
	Conflicts  int
	SkipErrors int
}

// PollCycle runs one pass over PENDING and ACTIVE signals.
func (m *Manager) PollCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	start := m.now()

	pending, err := m.signals.Select(ctx, query.StatusEq{Status: domain.StatusPending})
	if err != nil {
		m.metrics.PollCyclesTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("select pending signals: %w", err)
	}
	stats.Pending = len(pending)
	for _, sig := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		m.processPending(ctx, sig, &stats)
	}

	active, err := m.signals.Select(ctx, query.StatusEq{Status: domain.StatusActive})
	if err != nil {
		m.metrics.PollCyclesTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("select active signals: %w", err)
	}
	stats.Active = len(active)
	for _, sig := range active {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		m.processActive(ctx, sig, &stats)
	}

	m.metrics.SignalsByStatus.WithLabelValues(domain.StatusPending).Set(float64(stats.Pending))
	m.metrics.SignalsByStatus.WithLabelValues(domain.StatusActive).Set(float64(stats.Active))
	m.metrics.PollCyclesTotal.WithLabelValues("ok").Inc()
	m.metrics.PollCycleDuration.Observe(m.now().Sub(start).Seconds())
	m.metrics.LastSuccessfulPoll.Set(float64(m.now().Unix()))

	return stats, nil
}

// processPending decides the fate of one PENDING signal: fail invalid
// data, expire overdue signals, activate when price reaches entry.
func (m *Manager) processPending(ctx context.Context, sig *domain.Signal, stats *CycleStats) {
	now := m.now()

	if err := validate(sig); err != nil {
		if m.transition(ctx, sig, domain.StatusFailed, now, err.Error()) {
			stats.Failed++
		} else {
			stats.Conflicts++
		}
		return
	}

	if now.After(sig.ExpiresAt) {
		if m.transition(ctx, sig, domain.StatusExpired, now, "expired before activation") {
			stats.Expired++
		} else {
			stats.Conflicts++
		}
		return
	}

	snap, err := m.prices.CurrentPrice(ctx, sig.Mint)
	if err != nil {
		// Transient market-data failure; the signal stays PENDING.
		m.logger.Printf("[lifecycle] price for %s (%s): %v", sig.Token, sig.ID, err)
		m.metrics.SignalErrors.WithLabelValues("price_fetch").Inc()
		stats.SkipErrors++
		return
	}

	if !entryReached(sig, snap.Price) {
		return
	}

	reason := fmt.Sprintf("entry price %.8g reached at %.8g", sig.EntryPrice, snap.Price)
	if m.transition(ctx, sig, domain.StatusActive, now, reason) {
		stats.Activated++
	} else {
		stats.Conflicts++
	}
}

// processActive replays the price history since activation through the
// simulator and closes the signal when a threshold was crossed or the
// expiry elapsed.
func (m *Manager) processActive(ctx context.Context, sig *domain.Signal, stats *CycleStats) {
	now := m.now()

	from := sig.CreatedAt
	if sig.ActivatedAt != nil {
		from = *sig.ActivatedAt
	}

	prices, err := m.prices.PriceHistory(ctx, sig.Mint, from, now)
	if err != nil {
		m.logger.Printf("[lifecycle] history for %s (%s): %v", sig.Token, sig.ID, err)
		m.metrics.SignalErrors.WithLabelValues("history_fetch").Inc()
		stats.SkipErrors++
		return
	}

	outcome, err := simulator.Simulate(sig, prices)
	if err != nil {
		if m.transition(ctx, sig, domain.StatusFailed, now, err.Error()) {
			stats.Failed++
		} else {
			stats.Conflicts++
		}
		return
	}
	m.metrics.TradesSimulated.Inc()

	switch outcome.ExitReason {
	case domain.ExitReasonCompleted:
		if m.close(ctx, sig, domain.StatusCompleted, now, outcome,
			fmt.Sprintf("target %.8g reached at %.8g", sig.TargetPrice, outcome.ExitPrice)) {
			stats.Completed++
		} else {
			stats.Conflicts++
		}
	case domain.ExitReasonStopped:
		if m.close(ctx, sig, domain.StatusStopped, now, outcome,
			fmt.Sprintf("stop %.8g hit at %.8g", sig.StopLoss, outcome.ExitPrice)) {
			stats.Stopped++
		} else {
			stats.Conflicts++
		}
	default:
		// No threshold crossed. Close only once the window is over.
		if !now.After(sig.ExpiresAt) {
			return
		}
		if m.close(ctx, sig, domain.StatusExpired, now, outcome, "expired without hitting target or stop") {
			stats.Expired++
		} else {
			stats.Conflicts++
		}
	}
}

// transition moves a signal to a non-outcome status, records history and
// enqueues the outbox event. Returns false on a lost race.
func (m *Manager) transition(ctx context.Context, sig *domain.Signal, to string, at time.Time, reason string) bool {
	if !domain.CanTransition(sig.Status, to) {
		m.logger.Printf("[lifecycle] illegal transition %s -> %s for %s", sig.Status, to, sig.ID)
		m.metrics.SignalErrors.WithLabelValues("illegal_transition").Inc()
		return false
	}

	if err := m.signals.TransitionStatus(ctx, sig.ID, sig.Status, to, at); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			m.logger.Printf("[lifecycle] transition %s -> %s for %s lost race", sig.Status, to, sig.ID)
			m.metrics.TransitionConflicts.Inc()
		} else {
			m.logger.Printf("[lifecycle] transition %s -> %s for %s: %v", sig.Status, to, sig.ID, err)
			m.metrics.SignalErrors.WithLabelValues("transition").Inc()
		}
		return false
	}

	m.metrics.SignalTransitions.WithLabelValues(sig.Status, to).Inc()
	m.recordTransition(ctx, sig, sig.Status, to, at, reason, nil, nil)
	return true
}

// close moves a signal to a terminal status together with its outcome in
// one conditional update.
func (m *Manager) close(ctx context.Context, sig *domain.Signal, to string, at time.Time, outcome domain.TradeOutcome, reason string) bool {
	if !domain.CanTransition(sig.Status, to) {
		m.logger.Printf("[lifecycle] illegal transition %s -> %s for %s", sig.Status, to, sig.ID)
		m.metrics.SignalErrors.WithLabelValues("illegal_transition").Inc()
		return false
	}

	err := m.signals.CloseWithOutcome(ctx, sig.ID, sig.Status, to, outcome.ExitPrice, outcome.ActualReturnPct, outcome.Success)
	if err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			m.logger.Printf("[lifecycle] close %s -> %s for %s lost race", sig.Status, to, sig.ID)
			m.metrics.TransitionConflicts.Inc()
		} else {
			m.logger.Printf("[lifecycle] close %s -> %s for %s: %v", sig.Status, to, sig.ID, err)
			m.metrics.SignalErrors.WithLabelValues("close").Inc()
		}
		return false
	}

	m.metrics.SignalTransitions.WithLabelValues(sig.Status, to).Inc()
	m.recordTransition(ctx, sig, sig.Status, to, at, reason, &outcome.ExitPrice, &outcome.ActualReturnPct)
	return true
}

// recordTransition appends the status-history row and enqueues the
// outbox event. Both writes are idempotent by deterministic ID, so a
// repeated cycle after a partial failure converges.
func (m *Manager) recordTransition(ctx context.Context, sig *domain.Signal, from, to string, at time.Time, reason string, exitPrice, actualReturn *float64) {
	atMs := at.UnixMilli()

	tr := &domain.StatusTransition{
		TransitionID: idhash.TransitionID(sig.ID, from, to, atMs),
		SignalID:     sig.ID,
		FromStatus:   from,
		ToStatus:     to,
		Reason:       reason,
		OccurredAt:   at,
	}
	if err := m.history.Append(ctx, tr); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		m.logger.Printf("[lifecycle] history append for %s: %v", sig.ID, err)
		m.metrics.SignalErrors.WithLabelValues("history_append").Inc()
	}

	payload, err := json.Marshal(domain.StatusChangePayload{
		SignalID:     sig.ID,
		Token:        sig.Token,
		Mint:         sig.Mint,
		FromStatus:   from,
		ToStatus:     to,
		Reason:       reason,
		ExitPrice:    exitPrice,
		ActualReturn: actualReturn,
	})
	if err != nil {
		m.logger.Printf("[lifecycle] marshal event payload for %s: %v", sig.ID, err)
		return
	}

	ev := &domain.OutboxEvent{
		EventID:   idhash.EventID(sig.ID, domain.OutboxKindStatusChange, from+">"+to),
		SignalID:  sig.ID,
		Kind:      domain.OutboxKindStatusChange,
		Payload:   payload,
		CreatedAt: at,
	}
	if err := m.outbox.Enqueue(ctx, ev); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		m.logger.Printf("[lifecycle] enqueue event for %s: %v", sig.ID, err)
		m.metrics.SignalErrors.WithLabelValues("outbox_enqueue").Inc()
	}
}

// Run polls on the configured interval until the context is canceled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Printf("[lifecycle] manager started, interval=%s", m.pollInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Printf("[lifecycle] manager stopped")
			return ctx.Err()
		case <-ticker.C:
			stats, err := m.PollCycle(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.logger.Printf("[lifecycle] poll cycle failed: %v", err)
				continue
			}
			if stats.Activated+stats.Completed+stats.Stopped+stats.Expired+stats.Failed > 0 {
				m.logger.Printf("[lifecycle] cycle: pending=%d active=%d activated=%d completed=%d stopped=%d expired=%d failed=%d conflicts=%d",
					stats.Pending, stats.Active, stats.Activated, stats.Completed, stats.Stopped, stats.Expired, stats.Failed, stats.Conflicts)
			}
		}
	}
}

// validate rejects signals whose price levels cannot be traded.
func validate(sig *domain.Signal) error {
	if sig.EntryPrice <= 0 || sig.TargetPrice <= 0 || sig.StopLoss <= 0 {
		return fmt.Errorf("invalid price levels: entry=%g target=%g stop=%g", sig.EntryPrice, sig.TargetPrice, sig.StopLoss)
	}
	switch sig.Type {
	case domain.SignalTypeBuy:
		if sig.TargetPrice <= sig.EntryPrice || sig.StopLoss >= sig.EntryPrice {
			return fmt.Errorf("inconsistent BUY levels: entry=%g target=%g stop=%g", sig.EntryPrice, sig.TargetPrice, sig.StopLoss)
		}
	case domain.SignalTypeSell:
		if sig.TargetPrice >= sig.EntryPrice || sig.StopLoss <= sig.EntryPrice {
			return fmt.Errorf("inconsistent SELL levels: entry=%g target=%g stop=%g", sig.EntryPrice, sig.TargetPrice, sig.StopLoss)
		}
	default:
		return fmt.Errorf("unknown signal type %q", sig.Type)
	}
	return nil
}

// entryReached reports whether the current price has touched the entry
// level: at or below for BUY, at or above for SELL.
func entryReached(sig *domain.Signal, price float64) bool {
	if sig.Type == domain.SignalTypeBuy {
		return price <= sig.EntryPrice
	}
	return price >= sig.EntryPrice
}
