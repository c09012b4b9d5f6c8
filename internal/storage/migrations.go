package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		id          UUID PRIMARY KEY,
		collection  TEXT NOT NULL,
		slug        TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		location    JSONB,
		body        JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),

		CONSTRAINT uq_documents_slug UNIQUE (collection, slug)
	);

	ALTER TABLE documents ADD COLUMN IF NOT EXISTS coordinates_lat DOUBLE PRECISION;
	ALTER TABLE documents ADD COLUMN IF NOT EXISTS coordinates_lng DOUBLE PRECISION;

	CREATE INDEX IF NOT EXISTS idx_documents_list
		ON documents (collection, created_at, id);

	CREATE TABLE IF NOT EXISTS globals (
		slug        TEXT PRIMARY KEY,
		body        JSONB NOT NULL DEFAULT '{}',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// RunMigrations creates the document and global tables. It is safe to run
// on every start.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
