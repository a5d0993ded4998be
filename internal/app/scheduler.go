/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/config"
	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if s.config.StaleCycleGraceSec <= 0 {
		s.logger.Info("stale cycle sweep disabled", "grace_sec", s.config.StaleCycleGraceSec)
	} else if _, err := s.cron.AddFunc(s.config.StaleCycleSchedule, s.jobs.ReconcileStaleCycles); err != nil {
		s.logger.Error("failed to schedule stale cycle sweep", "error", err)
	} else {
		s.logger.Info("scheduled stale cycle sweep", "schedule", s.config.StaleCycleSchedule, "grace_sec", s.config.StaleCycleGraceSec)
	}

	s.cron.Start()
}

// Entries reports the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
