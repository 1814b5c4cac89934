package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema bootstraps the notes table on an empty database. It is idempotent;
// it is not a migration tool.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner       TEXT NOT NULL,
	text        TEXT NOT NULL,
	summary     TEXT,
	status      TEXT NOT NULL DEFAULT 'queued'
	            CHECK (status IN ('queued', 'processing', 'done', 'failed')),
	attempts    INTEGER NOT NULL DEFAULT 0 CHECK (attempts >= 0),
	last_error  TEXT,
	eligible_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT notes_summary_iff_done CHECK ((status = 'done') = (summary IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_notes_poll
	ON notes (created_at ASC)
	WHERE status = 'queued';

CREATE INDEX IF NOT EXISTS idx_notes_stale
	ON notes (updated_at ASC)
	WHERE status = 'processing';

CREATE INDEX IF NOT EXISTS idx_notes_owner_created
	ON notes (owner, created_at DESC);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
