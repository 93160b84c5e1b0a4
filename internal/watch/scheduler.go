// Package watch keeps the local snapshot current while the client runs
// unattended: a cron-driven periodic refresh, a websocket listener for
// registry contract events, and a small HTTP surface for health and metrics.
package watch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

// Refresher reloads the application snapshot. Implemented by the workflow
// coordinator.
type Refresher interface {
	Refresh(ctx context.Context) error
}

const refreshTimeout = 30 * time.Second

// Scheduler refreshes the snapshot on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	refresher Refresher
	log       *logger.Logger
}

// NewScheduler creates a scheduler for the given cron expression, for example
// "@every 30s".
func NewScheduler(schedule string, refresher Refresher, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Scheduler{
		cron:      cron.New(),
		schedule:  schedule,
		refresher: refresher,
		log:       log,
	}
}

// Start registers the refresh job and starts the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := s.refresher.Refresh(ctx); err != nil {
			s.log.WithError(err).Warn("scheduled refresh failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("refresh scheduler started")
	return nil
}

// Stop halts the runner and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("refresh scheduler stopped")
	return nil
}
