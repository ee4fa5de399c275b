package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"genforge/internal/domain"
)

// LineageRepoPG implements domain.LineageStore over the generations and
// artifacts tables. Input edges live in generations.input_artifacts
// (JSONB); output edges are the artifacts rows keyed by generation.
type LineageRepoPG struct {
	pool *pgxpool.Pool
}

// NewLineageRepo creates a lineage repository backed by PostgreSQL.
func NewLineageRepo(pool *pgxpool.Pool) *LineageRepoPG {
	return &LineageRepoPG{pool: pool}
}

// InputRefs returns the recorded input artifact references of a generation.
func (r *LineageRepoPG) InputRefs(ctx context.Context, generationID string) ([]domain.InputArtifactRef, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT input_artifacts FROM generations WHERE id = $1;`,
		generationID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var refs []domain.InputArtifactRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decode input artifacts: %w", err)
	}
	return refs, nil
}

// PutOutputs records output artifacts for a generation. The conflict
// clause makes replays a no-op, so delivery retries never duplicate rows.
func (r *LineageRepoPG) PutOutputs(ctx context.Context, generationID string, outputs []domain.Artifact) error {
	done, err := r.Finalized(ctx, generationID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
INSERT INTO artifacts (id, generation_id, output_index, artifact_type, storage_url, format, size_bytes, meta, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (generation_id, output_index) DO NOTHING;
`
	for idx, a := range outputs {
		meta, err := json.Marshal(a.Meta)
		if err != nil {
			return fmt.Errorf("marshal artifact meta: %w", err)
		}
		if _, err := tx.Exec(ctx, query,
			a.ID, generationID, idx, a.Type, a.StorageURL, a.Format, a.SizeBytes, meta,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Outputs returns the artifacts recorded for a generation in output order.
func (r *LineageRepoPG) Outputs(ctx context.Context, generationID string) ([]domain.Artifact, error) {
	query := `
SELECT id, artifact_type, storage_url, format, size_bytes, meta, created_at
FROM artifacts
WHERE generation_id = $1
ORDER BY output_index;
`
	rows, err := r.pool.Query(ctx, query, generationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		var (
			a    domain.Artifact
			meta []byte
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.StorageURL, &a.Format, &a.SizeBytes, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Meta); err != nil {
				return nil, fmt.Errorf("decode artifact meta: %w", err)
			}
		}
		a.GenerationID = generationID
		out = append(out, a)
	}
	return out, rows.Err()
}

// Finalized reports whether any outputs exist for the generation.
func (r *LineageRepoPG) Finalized(ctx context.Context, generationID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM artifacts WHERE generation_id = $1);`,
		generationID,
	).Scan(&exists)
	return exists, err
}

// CreatedAt returns when the generation was created.
func (r *LineageRepoPG) CreatedAt(ctx context.Context, generationID string) (time.Time, error) {
	var ts time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT created_at FROM generations WHERE id = $1;`,
		generationID,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, domain.ErrNotFound
	}
	return ts, err
}

var _ domain.LineageStore = (*LineageRepoPG)(nil)
