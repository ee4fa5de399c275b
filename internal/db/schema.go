package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements are idempotent so startup can apply them on every
// boot without coordination between worker replicas.
var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS generations (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    board_id         TEXT,
    generator_name   TEXT NOT NULL,
    provider_name    TEXT,
    artifact_type    TEXT NOT NULL,
    input_params     JSONB NOT NULL DEFAULT '{}'::jsonb,
    input_artifacts  JSONB NOT NULL DEFAULT '[]'::jsonb,
    status           TEXT NOT NULL DEFAULT 'queued',
    retry_count      INT NOT NULL DEFAULT 0,
    cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
    error_class      TEXT,
    error_message    TEXT,
    progress_stage   TEXT,
    progress_percent INT NOT NULL DEFAULT 0,
    progress_message TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at       TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ
);`,
	`
CREATE INDEX IF NOT EXISTS idx_generations_tenant ON generations (tenant_id, created_at DESC);`,
	`
CREATE INDEX IF NOT EXISTS idx_generations_status ON generations (status) WHERE status IN ('queued', 'running');`,
	`
CREATE TABLE IF NOT EXISTS artifacts (
    id             TEXT PRIMARY KEY,
    generation_id  TEXT NOT NULL REFERENCES generations (id) ON DELETE CASCADE,
    output_index   INT NOT NULL,
    artifact_type  TEXT NOT NULL,
    storage_url    TEXT NOT NULL,
    format         TEXT NOT NULL,
    size_bytes     BIGINT NOT NULL DEFAULT 0,
    meta           JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (generation_id, output_index)
);`,
	`
CREATE INDEX IF NOT EXISTS idx_artifacts_generation ON artifacts (generation_id);`,
}

// EnsureSchema applies the table and index definitions.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
