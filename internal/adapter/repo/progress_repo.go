package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"genforge/internal/domain"
)

// ProgressRepoPG writes the latest progress snapshot onto the generation
// row so API reads see stage and percent without a live subscription.
type ProgressRepoPG struct {
	pool *pgxpool.Pool
}

// NewProgressRepo creates a progress sink backed by PostgreSQL.
func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepoPG {
	return &ProgressRepoPG{pool: pool}
}

// UpdateProgress overwrites the stored progress snapshot. Unknown job
// ids are ignored: progress is best effort and never fails a dispatch.
func (r *ProgressRepoPG) UpdateProgress(ctx context.Context, ev domain.ProgressEvent) error {
	query := `
UPDATE generations
SET progress_stage = $2, progress_percent = $3, progress_message = $4, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, ev.JobID, ev.Stage, ev.Percent, ev.Message)
	return err
}

var _ domain.ProgressSink = (*ProgressRepoPG)(nil)
