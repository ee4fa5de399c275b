// Package dispatch runs the job lifecycle state machine: dequeue, mark
// running, resolve a generator, invoke it, store outputs, record
// lineage, finalize. Retry and failure classification live here.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genforge/internal/domain"
	"genforge/internal/generator"
	"genforge/internal/infra"
	"genforge/internal/lineage"
	"genforge/internal/progress"
	"genforge/internal/queue"
	"genforge/internal/registry"
	"genforge/internal/storage"
)

// ObjectStore is the slice of the storage manager the dispatcher needs.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, meta storage.ObjectMeta) (string, error)
}

// timeoutHint is implemented by generators whose options carry a custom
// invocation timeout.
type timeoutHint interface {
	GenerateTimeout() time.Duration
}

// Config bounds retry behavior.
type Config struct {
	// MaxRetries caps provider-error retries per job.
	MaxRetries int
	// MaxStorageRetries caps per-artifact upload attempts beyond the
	// first.
	MaxStorageRetries int
	// DefaultTimeout bounds Generate calls for generators without their
	// own hint.
	DefaultTimeout time.Duration
	Backoff        Backoff
	// StorageBackoff paces upload retries; defaults to a short constant.
	StorageBackoff Backoff
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxStorageRetries <= 0 {
		c.MaxStorageRetries = 2
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 5 * time.Minute
	}
	if c.Backoff == nil {
		c.Backoff = DefaultBackoff()
	}
	if c.StorageBackoff == nil {
		c.StorageBackoff = ConstantBackoff{Interval: time.Second}
	}
	return c
}

// Dispatcher executes one job per Process call. It owns no goroutines;
// the queue subscription drives it.
type Dispatcher struct {
	store    domain.GenerationStore
	registry *registry.Registry
	storage  ObjectStore
	lineage  *lineage.Tracker
	progress *progress.Publisher
	resolver generator.Resolver
	metrics  *infra.Metrics
	logger   zerolog.Logger
	cfg      Config

	sleep func(ctx context.Context, d time.Duration) error
}

// Deps collects the dispatcher's collaborators.
type Deps struct {
	Store    domain.GenerationStore
	Registry *registry.Registry
	Storage  ObjectStore
	Lineage  *lineage.Tracker
	Progress *progress.Publisher
	Resolver generator.Resolver
	// Metrics is optional.
	Metrics *infra.Metrics
	Logger  zerolog.Logger
}

// New creates a Dispatcher.
func New(deps Deps, cfg Config) *Dispatcher {
	return &Dispatcher{
		store:    deps.Store,
		registry: deps.Registry,
		storage:  deps.Storage,
		lineage:  deps.Lineage,
		progress: deps.Progress,
		resolver: deps.Resolver,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		cfg:      cfg.withDefaults(),
		sleep:    sleepCtx,
	}
}

// Process runs one dispatch attempt for jobID. A nil return means the
// delivery is settled (acked); the job itself may still have failed
// terminally. A retryable failure with budget left persists the queued
// retry and returns *queue.RetryError so the broker redelivers the same
// message after the backoff delay.
func (d *Dispatcher) Process(ctx context.Context, jobID string) error {
	start := time.Now()
	job, err := d.store.GetGeneration(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load generation %s: %w", jobID, err)
	}
	log := d.logger.With().Str("job_id", job.ID).Str("generator", job.GeneratorName).Logger()

	switch {
	case job.Status.Terminal():
		log.Debug().Str("status", string(job.Status)).Msg("dispatch: job already terminal, dropping delivery")
		return nil
	case job.Status == domain.JobStatusRunning:
		// No lease/heartbeat exists for running jobs; a redelivered id in
		// this state means another worker owns it or crashed mid-flight.
		// It is never auto-requeued.
		log.Warn().Msg("dispatch: job already running, dropping delivery")
		return nil
	}

	if job.CancelRequested {
		log.Info().Msg("dispatch: cancellation requested before dispatch")
		d.finalizeFailure(ctx, job, domain.ErrClassCanceled, "canceled before dispatch", start)
		return nil
	}

	if err := d.store.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark running %s: %w", job.ID, err)
	}
	d.progress.Publish(ctx, job.ID, domain.StageStarting, 5, "")

	gen, ok := d.registry.Get(job.GeneratorName)
	if !ok {
		log.Error().Msg("dispatch: generator not registered")
		d.finalizeFailure(ctx, job, domain.ErrClassGeneratorNotFound,
			fmt.Sprintf("generator %q is not registered", job.GeneratorName), start)
		return nil
	}

	if err := gen.InputSchema().Validate(job.InputParams); err != nil {
		log.Error().Err(err).Msg("dispatch: input validation failed")
		d.finalizeFailure(ctx, job, domain.ErrClassValidationFailed, err.Error(), start)
		return nil
	}

	if len(job.InputArtifacts) > 0 {
		if err := d.lineage.ValidateInputs(ctx, job); err != nil {
			log.Error().Err(err).Msg("dispatch: input lineage validation failed")
			d.finalizeFailure(ctx, job, domain.ErrClassValidationFailed, err.Error(), start)
			return nil
		}
	}

	d.progress.Publish(ctx, job.ID, domain.StageGenerating, 15, "")
	result, err := d.invoke(ctx, gen, job)
	if err != nil {
		return d.handleGenerateError(ctx, job, err, start, log)
	}

	d.progress.Publish(ctx, job.ID, domain.StageStoring, 80, "")
	outputs, err := d.storeOutputs(ctx, job, result)
	if err != nil {
		log.Error().Err(err).Msg("dispatch: persisting outputs failed after successful generation")
		d.finalizeFailure(ctx, job, domain.ErrClassStorageFailed,
			fmt.Sprintf("generation succeeded, persistence failed: %v", err), start)
		return nil
	}

	if err := d.lineage.RecordOutputs(ctx, job.ID, outputs); err != nil {
		log.Error().Err(err).Msg("dispatch: lineage write failed after successful generation")
		d.finalizeFailure(ctx, job, domain.ErrClassStorageFailed,
			fmt.Sprintf("generation succeeded, lineage write failed: %v", err), start)
		return nil
	}

	if err := d.store.FinalizeSuccess(ctx, job.ID, outputs); err != nil {
		return fmt.Errorf("finalize success %s: %w", job.ID, err)
	}
	d.progress.Publish(ctx, job.ID, domain.StageSucceeded, 100, "")
	d.metrics.ObserveTerminal(string(domain.JobStatusSucceeded), time.Since(start).Seconds())
	log.Info().Int("outputs", len(outputs)).Int("retries", job.RetryCount).Msg("dispatch: job succeeded")
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, gen generator.Generator, job *domain.Job) (*generator.Result, error) {
	timeout := d.cfg.DefaultTimeout
	if h, ok := gen.(timeoutHint); ok && h.GenerateTimeout() > 0 {
		timeout = h.GenerateTimeout()
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return gen.Generate(genCtx, generator.Request{
		JobID:          job.ID,
		TenantID:       job.TenantID,
		Params:         job.InputParams,
		InputArtifacts: job.InputArtifacts,
		Resolver:       d.resolver,
	})
}

func (d *Dispatcher) handleGenerateError(ctx context.Context, job *domain.Job, genErr error, start time.Time, log zerolog.Logger) error {
	if domain.Retryable(genErr) && job.RetryCount < d.cfg.MaxRetries {
		attempt := job.RetryCount + 1
		delay := d.cfg.Backoff.Delay(attempt)
		log.Warn().Err(genErr).Int("attempt", attempt).Dur("delay", delay).Msg("dispatch: retryable provider failure, requeueing")

		if err := d.store.Requeue(ctx, job.ID, attempt); err != nil {
			return fmt.Errorf("requeue %s: %w", job.ID, err)
		}
		d.progress.Publish(ctx, job.ID, domain.StageRetrying, 10,
			fmt.Sprintf("attempt %d of %d", attempt, d.cfg.MaxRetries))
		d.metrics.ObserveRetry()
		return &queue.RetryError{After: delay}
	}

	log.Error().Err(genErr).Int("retries", job.RetryCount).Msg("dispatch: generation failed terminally")
	d.finalizeFailure(ctx, job, domain.ErrClassProviderFailed, genErr.Error(), start)
	return nil
}

// storeOutputs uploads every generated artifact with bounded retries and
// returns the persisted artifact records. Keys are stable per
// (job, index), so replays overwrite.
func (d *Dispatcher) storeOutputs(ctx context.Context, job *domain.Job, result *generator.Result) ([]domain.Artifact, error) {
	outputs := make([]domain.Artifact, 0, len(result.Outputs))
	for idx, out := range result.Outputs {
		meta := storage.ObjectMeta{
			JobID:        job.ID,
			TenantID:     job.TenantID,
			Generator:    job.GeneratorName,
			ArtifactType: out.Type,
			Format:       out.Format,
			Index:        idx,
		}
		url, err := d.uploadWithRetry(ctx, out.Data, meta)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, domain.Artifact{
			ID:           uuid.NewString(),
			GenerationID: job.ID,
			Type:         out.Type,
			StorageURL:   url,
			Format:       out.Format,
			SizeBytes:    int64(len(out.Data)),
			Meta:         out.Meta,
			CreatedAt:    time.Now().UTC(),
		})
	}
	return outputs, nil
}

func (d *Dispatcher) uploadWithRetry(ctx context.Context, data []byte, meta storage.ObjectMeta) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxStorageRetries; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.cfg.StorageBackoff.Delay(attempt)); err != nil {
				return "", err
			}
		}
		url, err := d.storage.Store(ctx, data, meta)
		if err == nil {
			return url, nil
		}
		lastErr = err
		d.metrics.ObserveUploadFailure()
	}
	return "", lastErr
}

func (d *Dispatcher) finalizeFailure(ctx context.Context, job *domain.Job, errClass, message string, start time.Time) {
	if err := d.store.FinalizeFailure(ctx, job.ID, errClass, message); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatch: finalize failure write failed")
	}
	d.progress.Publish(ctx, job.ID, domain.StageFailed, 100, message)
	d.metrics.ObserveTerminal(string(domain.JobStatusFailed), time.Since(start).Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
