package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/internal/store"
	"github.com/elonfeng/bubbles/pkg/alert"
	"github.com/elonfeng/bubbles/pkg/feed"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a run is already in progress")

// Pipeline produces one feed document.
type Pipeline interface {
	Run(ctx context.Context) (*feed.Document, error)
}

// Job runs the pipeline and publishes its result: the JSON file, the history
// store and the alert destinations. Store and alerts are optional.
type Job struct {
	pipeline Pipeline
	store    store.Store
	alerts   *alert.Manager
	output   string
	alertTop int
	logger   *zerolog.Logger

	mu sync.Mutex
}

// NewJob creates a job. An empty output path skips the file write.
func NewJob(p Pipeline, s store.Store, alerts *alert.Manager, output string, alertTop int, logger *zerolog.Logger) *Job {
	return &Job{
		pipeline: p,
		store:    s,
		alerts:   alerts,
		output:   output,
		alertTop: alertTop,
		logger:   logger,
	}
}

// RunOnce executes one run and returns the stored feed id, empty when no
// store is configured.
func (j *Job) RunOnce(ctx context.Context) (string, *feed.Document, error) {
	if !j.mu.TryLock() {
		return "", nil, ErrBusy
	}
	defer j.mu.Unlock()

	doc, err := j.pipeline.Run(ctx)
	if err != nil {
		return "", nil, err
	}

	if j.output != "" {
		if err := feed.WriteFile(j.output, doc); err != nil {
			return "", nil, err
		}
		j.logger.Info().Str("path", j.output).Int("items", doc.Count).Msg("feed written")
	}

	if j.store == nil {
		return "", doc, nil
	}

	id, err := j.store.SaveFeed(ctx, doc)
	if err != nil {
		return "", doc, fmt.Errorf("save feed: %w", err)
	}
	j.logger.Info().Str("feed_id", id).Msg("feed stored")

	j.notify(ctx, id, doc)
	return id, doc, nil
}

// notify broadcasts the run. Alert failures are logged, never returned.
func (j *Job) notify(ctx context.Context, id string, doc *feed.Document) {
	if j.alerts == nil || !j.alerts.HasNotifiers() || doc.Count == 0 {
		return
	}

	if err := j.alerts.Broadcast(ctx, alert.NewNotification(id, doc, j.alertTop)); err != nil {
		j.logger.Warn().Err(err).Str("feed_id", id).Msg("alert failed")
		return
	}
	if err := j.store.MarkAlerted(ctx, id); err != nil {
		j.logger.Warn().Err(err).Str("feed_id", id).Msg("mark alerted failed")
	}
}
