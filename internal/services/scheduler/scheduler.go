// Package scheduler activates scheduled transfers once they are due. A cron
// job scans for pending scheduled transfers and hands each one to the
// transfer engine.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages the cron job.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
	spec string
	log  zerolog.Logger
}

// NewScheduler creates a scheduler running jobs on spec.
func NewScheduler(jobs *Jobs, spec string, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "cron").Logger()
	cronLogger := cronLog{log: log}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	return &Scheduler{cron: c, jobs: jobs, spec: spec, log: log}
}

// Start registers the job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.jobs.ActivateDueTransfers); err != nil {
		return fmt.Errorf("failed to schedule transfer activation job: %w", err)
	}
	s.log.Info().Str("schedule", s.spec).Msg("scheduled transfer activation job")
	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once a running
// scan has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLog adapts zerolog to cron.Logger.
type cronLog struct {
	log zerolog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
