package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"genforge/internal/domain"
)

// GenerationRepoPG implements domain.GenerationStore on PostgreSQL.
// Status updates carry the current-state predicate in the WHERE clause,
// so the monotonic lifecycle holds even with concurrent workers.
type GenerationRepoPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepo creates a generation repository backed by PostgreSQL.
func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepoPG {
	return &GenerationRepoPG{pool: pool}
}

// CreateGeneration inserts a new queued generation row.
func (r *GenerationRepoPG) CreateGeneration(ctx context.Context, job *domain.Job) error {
	params, err := json.Marshal(job.InputParams)
	if err != nil {
		return fmt.Errorf("marshal input params: %w", err)
	}
	inputs, err := json.Marshal(job.InputArtifacts)
	if err != nil {
		return fmt.Errorf("marshal input artifacts: %w", err)
	}
	query := `
INSERT INTO generations (id, tenant_id, board_id, generator_name, provider_name, artifact_type,
                         input_params, input_artifacts, status, retry_count, cancel_requested, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW());
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.TenantID,
		job.BoardID,
		job.GeneratorName,
		job.ProviderName,
		job.ArtifactType,
		params,
		inputs,
		domain.JobStatusQueued,
		job.RetryCount,
		job.CancelRequested,
	)
	return err
}

// GetGeneration fetches a generation by id.
func (r *GenerationRepoPG) GetGeneration(ctx context.Context, id string) (*domain.Job, error) {
	query := `
SELECT id, tenant_id, board_id, generator_name, provider_name, artifact_type,
       input_params, input_artifacts, status, retry_count, cancel_requested,
       error_class, error_message, created_at, started_at, completed_at
FROM generations
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var (
		job      domain.Job
		params   []byte
		inputs   []byte
		errClass *string
		errMsg   *string
		boardID  *string
		provider *string
	)
	if err := row.Scan(
		&job.ID,
		&job.TenantID,
		&boardID,
		&job.GeneratorName,
		&provider,
		&job.ArtifactType,
		&params,
		&inputs,
		&job.Status,
		&job.RetryCount,
		&job.CancelRequested,
		&errClass,
		&errMsg,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if boardID != nil {
		job.BoardID = *boardID
	}
	if provider != nil {
		job.ProviderName = *provider
	}
	if errClass != nil {
		job.ErrorClass = *errClass
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.InputParams); err != nil {
			return nil, fmt.Errorf("decode input params: %w", err)
		}
	}
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &job.InputArtifacts); err != nil {
			return nil, fmt.Errorf("decode input artifacts: %w", err)
		}
	}
	return &job, nil
}

// MarkRunning moves a queued generation to running.
func (r *GenerationRepoPG) MarkRunning(ctx context.Context, id string) error {
	query := `
UPDATE generations
SET status = $2, started_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = $3;
`
	tag, err := r.pool.Exec(ctx, query, id, domain.JobStatusRunning, domain.JobStatusQueued)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

// Requeue moves a running generation back to queued with the new retry
// count, ahead of a delayed re-dispatch.
func (r *GenerationRepoPG) Requeue(ctx context.Context, id string, retryCount int) error {
	query := `
UPDATE generations
SET status = $2, retry_count = $3, updated_at = NOW()
WHERE id = $1 AND status = $4;
`
	tag, err := r.pool.Exec(ctx, query, id, domain.JobStatusQueued, retryCount, domain.JobStatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

// FinalizeSuccess marks the generation succeeded and upserts its output
// artifacts in one transaction. The (generation_id, output_index) key
// makes a crash-and-replay overwrite instead of duplicating.
func (r *GenerationRepoPG) FinalizeSuccess(ctx context.Context, id string, outputs []domain.Artifact) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	updateQuery := `
UPDATE generations
SET status = $2, completed_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = $3;
`
	tag, err := tx.Exec(ctx, updateQuery, id, domain.JobStatusSucceeded, domain.JobStatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}

	insertQuery := `
INSERT INTO artifacts (id, generation_id, output_index, artifact_type, storage_url, format, size_bytes, meta, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (generation_id, output_index)
DO UPDATE SET storage_url = EXCLUDED.storage_url, format = EXCLUDED.format,
              size_bytes = EXCLUDED.size_bytes, meta = EXCLUDED.meta;
`
	for idx, a := range outputs {
		meta, err := json.Marshal(a.Meta)
		if err != nil {
			return fmt.Errorf("marshal artifact meta: %w", err)
		}
		if _, err := tx.Exec(ctx, insertQuery,
			a.ID, id, idx, a.Type, a.StorageURL, a.Format, a.SizeBytes, meta,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// FinalizeFailure marks the generation failed with its error class and
// message for user-visible surfacing.
func (r *GenerationRepoPG) FinalizeFailure(ctx context.Context, id, errClass, errMessage string) error {
	query := `
UPDATE generations
SET status = $2, error_class = $3, error_message = $4, completed_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status IN ($5, $6);
`
	tag, err := r.pool.Exec(ctx, query, id, domain.JobStatusFailed, errClass, errMessage,
		domain.JobStatusQueued, domain.JobStatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

// transitionConflict distinguishes a missing row from an illegal
// transition after a zero-row update.
func (r *GenerationRepoPG) transitionConflict(ctx context.Context, id string) error {
	var status domain.JobStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM generations WHERE id = $1;`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("generation %s is %s: %w", id, status, domain.ErrInvalidTransition)
}

var _ domain.GenerationStore = (*GenerationRepoPG)(nil)
