/**
 * @description
 * Scheduled job implementations for the kiosk service.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

const staleCycleReason = "expected completion passed without a completion signal"

// StaleCycleRepository is the storage the sweep needs.
type StaleCycleRepository interface {
	FailStaleServiceTransactions(ctx context.Context, cutoff time.Time, reason string) ([]domain.Transaction, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo     StaleCycleRepository
	events   *EventPublisher
	notifier StatusNotifier
	grace    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewJobs creates a new Jobs runner. notifier may be nil.
func NewJobs(repo StaleCycleRepository, events *EventPublisher, notifier StatusNotifier, grace time.Duration, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:     repo,
		events:   events,
		notifier: notifier,
		grace:    grace,
		logger:   logger,
		now:      time.Now,
	}
}

// ReconcileStaleCycles moves in-progress transactions that are overdue by more than the
// grace period to error, so the machine status stops reporting a cycle nobody closed.
func (j *Jobs) ReconcileStaleCycles() {
	if j.grace <= 0 {
		return
	}
	j.logger.Info("starting stale cycle sweep")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.now().UTC()
	cutoff := now.Add(-j.grace)
	failed, err := j.repo.FailStaleServiceTransactions(ctx, cutoff, staleCycleReason)
	if err != nil {
		j.logger.Error("failed to reconcile stale cycles", "error", err)
		return
	}

	if len(failed) == 0 {
		j.logger.Info("no stale cycles to reconcile")
		return
	}

	for i := range failed {
		tx := &failed[i]
		j.logger.Warn("stale cycle marked as error", "transaction_id", tx.ID, "athlete_id", tx.AthleteID, "expected_complete_at", tx.ExpectedCompleteAt)
		j.events.publish(ctx, domain.RoutingCycleFailed, domain.NewCycleEvent(tx, now))
	}
	if j.notifier != nil {
		j.notifier.Notify()
	}

	j.logger.Info("stale cycle sweep finished", "count", len(failed))
}
