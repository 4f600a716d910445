// Package scheduler runs the backup pipeline on a cron expression.
//
// Overlapping ticks need no special handling: a tick that finds the
// previous run still holding the lock fails fast with a logged
// conflict, which is the pipeline's normal concurrency behavior.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"tarkeep/internal/logging"
	"tarkeep/internal/pipeline"
)

// Scheduler triggers pipeline runs on a fixed cron schedule.
type Scheduler struct {
	runner *pipeline.Runner
	logger *slog.Logger
	spec   string
}

// New constructs a scheduler for the given five-field cron expression.
func New(runner *pipeline.Runner, spec string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return &Scheduler{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		spec:   spec,
	}, nil
}

// Run blocks until ctx is cancelled, executing a backup of sourceDir at
// every tick. Individual run failures are logged; the schedule keeps
// going.
func (s *Scheduler) Run(ctx context.Context, sourceDir string, dryRun bool) error {
	c := cron.New()
	_, err := c.AddFunc(s.spec, func() {
		if _, err := s.runner.Run(ctx, sourceDir, dryRun); err != nil {
			s.logger.Error("scheduled run failed", logging.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}

	s.logger.Info("schedule started",
		logging.String("cron", s.spec),
		logging.String(logging.FieldSource, sourceDir))
	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("schedule stopped")
	return ctx.Err()
}
