// Package queue wraps a NATS JetStream connection as the job-id broker
// between submission and the worker pool, plus a best-effort progress
// event fanout.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

const (
	StreamName      = "GENFORGE"
	SubjectJobs     = "genforge.jobs.dispatch"
	SubjectProgress = "genforge.progress"
)

// jobMessage is the wire shape of one queued dispatch.
type jobMessage struct {
	JobID string `json:"job_id"`
}

// RetryError signals that the handler recorded a retryable failure and
// the delivery should come back after a backoff delay. The broker holds
// the redelivery, so a worker crash cannot strand the retried job.
type RetryError struct {
	After time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("queue: retry after %s", e.After)
}

// disposition is the delivery settlement chosen for a handler result.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionNakWithDelay
	dispositionTerm
	dispositionNak
)

// settle maps a handler result to a delivery settlement. A RetryError
// defers redelivery by its delay; a missing job row is terminated so an
// unresolvable id does not redeliver forever; any other error redelivers
// immediately.
func settle(err error) (disposition, time.Duration) {
	if err == nil {
		return dispositionAck, 0
	}
	var retry *RetryError
	if errors.As(err, &retry) {
		return dispositionNakWithDelay, retry.After
	}
	if errors.Is(err, domain.ErrNotFound) {
		return dispositionTerm, 0
	}
	return dispositionNak, 0
}

// Bus wraps a NATS JetStream connection for publishing and consuming
// job ids.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger
}

// New connects to NATS and ensures the job stream exists.
func New(url string, logger zerolog.Logger, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue: jetstream: %w", err)
	}

	_, err = js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      StreamName,
			Subjects:  []string{SubjectJobs},
			Retention: nats.WorkQueuePolicy,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue: ensure stream: %w", err)
	}

	return &Bus{conn: nc, js: js, logger: logger}, nil
}

// Close drains the underlying connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// PublishJob enqueues a job id for dispatch.
func (b *Bus) PublishJob(ctx context.Context, jobID string) error {
	if b == nil {
		return errors.New("queue: nil bus")
	}
	data, err := json.Marshal(jobMessage{JobID: jobID})
	if err != nil {
		return err
	}
	_, err = b.js.Publish(SubjectJobs, data, nats.Context(ctx))
	return err
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// SubscribeJobs creates a durable consumer on the job subject and
// invokes fn for each delivered job id. A RetryError from fn NakWithDelays
// the delivery so the broker redelivers after the backoff; a missing job
// row terminates the delivery; any other error Naks it; nil acks it.
func (b *Bus) SubscribeJobs(ctx context.Context, durable string, fn func(ctx context.Context, jobID string) error) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("queue: nil bus")
	}
	if fn == nil {
		return nil, errors.New("queue: nil handler")
	}

	handler := func(msg *nats.Msg) {
		var jm jobMessage
		if err := json.Unmarshal(msg.Data, &jm); err != nil || jm.JobID == "" {
			b.logger.Error().Err(err).Msg("queue: dropping malformed job message")
			_ = msg.Term()
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		err := fn(handlerCtx, jm.JobID)
		switch disp, delay := settle(err); disp {
		case dispositionNakWithDelay:
			b.logger.Info().Str("job_id", jm.JobID).Dur("delay", delay).Msg("queue: retry scheduled, nacking with delay")
			_ = msg.NakWithDelay(delay)
		case dispositionTerm:
			b.logger.Error().Err(err).Str("job_id", jm.JobID).Msg("queue: job row missing, terminating delivery")
			_ = msg.Term()
		case dispositionNak:
			b.logger.Error().Err(err).Str("job_id", jm.JobID).Msg("queue: handler failed, nacking")
			_ = msg.Nak()
		default:
			_ = msg.Ack()
		}
	}

	sub, err := b.js.Subscribe(SubjectJobs, handler, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, fmt.Errorf("queue: subscribe: %w", err)
	}

	s := &subscription{sub: sub}
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

// Emit publishes a progress event onto the per-job progress subject as
// a plain core-NATS message: progress is ephemeral and best-effort, so
// nothing retains it. Satisfies progress.Emitter.
func (b *Bus) Emit(_ context.Context, ev domain.ProgressEvent) error {
	if b == nil {
		return errors.New("queue: nil bus")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.conn.Publish(fmt.Sprintf("%s.%s", SubjectProgress, ev.JobID), data)
}
