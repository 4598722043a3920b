// Package postgres provides the PostgreSQL-backed persistence layer for
// Audicia: the clinical record store and the append-only audit event log.
//
// Both share a single [pgxpool.Pool]. [Migrate] is idempotent and safe to
// call on every application start.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
//
//	_ = st.SaveRecord(ctx, rec)
//	_ = st.Append(ctx, event)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Records hold only de-identified content: the structured document (with
// restored spans, as produced by the pipeline) plus the masked transcript.
// The full-text index covers the masked transcript so operator search never
// touches identifying content.
const ddlClinicalRecords = `
CREATE TABLE IF NOT EXISTS clinical_records (
    session_id   TEXT              PRIMARY KEY,
    document     JSONB             NOT NULL,
    masked_text  TEXT              NOT NULL DEFAULT '',
    quality      DOUBLE PRECISION  NOT NULL DEFAULT 0,
    accuracy     DOUBLE PRECISION  NOT NULL DEFAULT 0,
    issues       JSONB             NOT NULL DEFAULT '[]',
    created_at   TIMESTAMPTZ       NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clinical_records_created_at
    ON clinical_records (created_at);

CREATE INDEX IF NOT EXISTS idx_clinical_records_fts
    ON clinical_records USING GIN (to_tsvector('english', masked_text));
`

// The audit table is append-only by contract: the store exposes no update or
// delete operation for it.
const ddlAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    id            UUID         PRIMARY KEY,
    session_id    TEXT         NOT NULL,
    stage         TEXT         NOT NULL,
    action        TEXT         NOT NULL,
    success       BOOLEAN      NOT NULL,
    phi_accessed  BOOLEAN      NOT NULL,
    error_detail  TEXT         NOT NULL DEFAULT '',
    timestamp     TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_session_timestamp
    ON audit_events (session_id, timestamp);

CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp
    ON audit_events (timestamp);
`

// Migrate creates or ensures all required database tables exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlClinicalRecords,
		ddlAuditEvents,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
