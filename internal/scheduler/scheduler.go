// Package scheduler repeats the bubble pipeline on an interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/pkg/bubble"
	"github.com/elonfeng/bubbles/pkg/feed"
)

// Runner executes one complete run.
type Runner interface {
	RunOnce(ctx context.Context) (string, *feed.Document, error)
}

// Scheduler runs a Runner periodically.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zerolog.Logger
}

// New creates a new scheduler.
func New(r Runner, interval time.Duration, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{runner: r, interval: interval, logger: logger}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.logger.Info().Msg("scheduler: initial run")
	s.runOnce(ctx)

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler: running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	id, doc, err := s.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, bubble.ErrNoItems), errors.Is(err, bubble.ErrNoClusters), errors.Is(err, ErrBusy):
		s.logger.Warn().Err(err).Msg("scheduler: run skipped")
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("scheduler: run failed")
		}
	default:
		s.logger.Info().
			Str("feed_id", id).
			Int("items", doc.Count).
			Dur("took", time.Since(start)).
			Msg("scheduler: run complete")
	}
}
