// Package progress provides best-effort progress publication for
// generation jobs. Nothing here may fail the owning job: persistence and
// emission errors are logged and swallowed.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

const defaultMaxHistory = 100

// Emitter pushes an event to an external channel (queue, websocket
// fanout). Optional.
type Emitter interface {
	Emit(ctx context.Context, ev domain.ProgressEvent) error
}

// Publisher appends ephemeral progress events and attempts to persist
// the latest stage onto the job record. Events for the same job are
// observed in publish order; no ordering holds across jobs.
type Publisher struct {
	sink    domain.ProgressSink
	emitter Emitter
	logger  zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	history    map[string][]domain.ProgressEvent
	maxHistory int
}

// New creates a Publisher. sink and emitter may each be nil.
func New(sink domain.ProgressSink, emitter Emitter, logger zerolog.Logger) *Publisher {
	return &Publisher{
		sink:       sink,
		emitter:    emitter,
		logger:     logger,
		now:        time.Now,
		history:    make(map[string][]domain.ProgressEvent),
		maxHistory: defaultMaxHistory,
	}
}

// Publish records one progress event. Safe to call from the worker's
// execution goroutine; never returns an error to the job path.
func (p *Publisher) Publish(ctx context.Context, jobID, stage string, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	ev := domain.ProgressEvent{
		JobID:     jobID,
		Stage:     stage,
		Percent:   percent,
		Message:   message,
		Timestamp: p.now(),
	}

	p.mu.Lock()
	events := append(p.history[jobID], ev)
	if len(events) > p.maxHistory {
		events = events[len(events)-p.maxHistory:]
	}
	p.history[jobID] = events
	p.mu.Unlock()

	if p.sink != nil {
		if err := p.sink.UpdateProgress(ctx, ev); err != nil {
			p.logger.Warn().Err(err).Str("job_id", jobID).Str("stage", stage).Msg("progress: persist failed")
		}
	}
	if p.emitter != nil {
		if err := p.emitter.Emit(ctx, ev); err != nil {
			p.logger.Warn().Err(err).Str("job_id", jobID).Str("stage", stage).Msg("progress: emit failed")
		}
	}
}

// History returns the buffered events for a job in publish order.
func (p *Publisher) History(jobID string) []domain.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressEvent(nil), p.history[jobID]...)
}

// Forget drops the buffered history of a job.
func (p *Publisher) Forget(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.history, jobID)
}
