package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DandaAkhilReddy/audicia/internal/audit"
	"github.com/DandaAkhilReddy/audicia/internal/soap"
	"github.com/DandaAkhilReddy/audicia/internal/validate"
	"github.com/DandaAkhilReddy/audicia/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.RecordStore = (*Store)(nil)
	_ audit.Sink        = (*Store)(nil)
)

// Store is the PostgreSQL-backed persistence layer. It implements both
// [store.RecordStore] for clinical records and [audit.Sink] for the
// append-only audit trail.
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure all required tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveRecord implements [store.RecordStore]. Reprocessing a session replaces
// its earlier record; the audit trail keeps the history.
func (s *Store) SaveRecord(ctx context.Context, rec store.Record) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("record store: marshal document: %w", err)
	}
	issues := rec.Issues
	if issues == nil {
		issues = []validate.Issue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("record store: marshal issues: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO clinical_records
		    (session_id, document, masked_text, quality, accuracy, issues, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (session_id) DO UPDATE SET
		    document    = EXCLUDED.document,
		    masked_text = EXCLUDED.masked_text,
		    quality     = EXCLUDED.quality,
		    accuracy    = EXCLUDED.accuracy,
		    issues      = EXCLUDED.issues,
		    updated_at  = now()`

	_, err = s.pool.Exec(ctx, q,
		rec.SessionID,
		doc,
		rec.MaskedText,
		rec.Quality,
		rec.Accuracy,
		issuesJSON,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record store: save: %w", err)
	}
	return nil
}

// GetRecord implements [store.RecordStore].
func (s *Store) GetRecord(ctx context.Context, sessionID string) (*store.Record, error) {
	const q = `
		SELECT session_id, document, masked_text, quality, accuracy, issues, created_at
		FROM   clinical_records
		WHERE  session_id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, q, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record store: get: %w", err)
	}
	return rec, nil
}

// ListRecords implements [store.RecordStore]. Records come back newest first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]store.Record, error) {
	q := `
		SELECT session_id, document, masked_text, quality, accuracy, issues, created_at
		FROM   clinical_records
		ORDER  BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("record store: list: %w", err)
	}
	return collectRecords(rows)
}

// SearchRecords performs a full-text search over the masked transcripts and
// returns matching records newest first. The query is passed to
// plainto_tsquery so no special operator syntax is required.
func (s *Store) SearchRecords(ctx context.Context, query string, limit int) ([]store.Record, error) {
	q := `
		SELECT session_id, document, masked_text, quality, accuracy, issues, created_at
		FROM   clinical_records
		WHERE  to_tsvector('english', masked_text) @@ plainto_tsquery('english', $1)
		ORDER  BY created_at DESC`
	args := []any{query}
	if limit > 0 {
		q += fmt.Sprintf("\nLIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("record store: search: %w", err)
	}
	return collectRecords(rows)
}

// Append implements [audit.Sink]. Events are written once and never updated.
func (s *Store) Append(ctx context.Context, e audit.Event) error {
	const q = `
		INSERT INTO audit_events
		    (id, session_id, stage, action, success, phi_accessed, error_detail, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, q,
		e.ID,
		e.SessionID,
		e.Stage,
		e.Action,
		e.Success,
		e.PHIAccessed,
		e.ErrorDetail,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit sink: append: %w", err)
	}
	return nil
}

// SessionEvents returns the full audit trail for one session in emission
// order.
func (s *Store) SessionEvents(ctx context.Context, sessionID string) ([]audit.Event, error) {
	const q = `
		SELECT id, session_id, stage, action, success, phi_accessed, error_detail, timestamp
		FROM   audit_events
		WHERE  session_id = $1
		ORDER  BY timestamp, id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit sink: session events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var e audit.Event
		err := row.Scan(
			&e.ID,
			&e.SessionID,
			&e.Stage,
			&e.Action,
			&e.Success,
			&e.PHIAccessed,
			&e.ErrorDetail,
			&e.Timestamp,
		)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("audit sink: scan events: %w", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events, nil
}

// rowScanner covers both pgx.Row and pgx.CollectableRow.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one clinical_records row.
func scanRecord(row rowScanner) (*store.Record, error) {
	var (
		rec        store.Record
		docJSON    []byte
		issuesJSON []byte
	)
	if err := row.Scan(
		&rec.SessionID,
		&docJSON,
		&rec.MaskedText,
		&rec.Quality,
		&rec.Accuracy,
		&issuesJSON,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	doc := &soap.Document{}
	if err := json.Unmarshal(docJSON, doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	rec.Document = doc

	if err := json.Unmarshal(issuesJSON, &rec.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	return &rec, nil
}

// collectRecords scans pgx rows into a slice of records.
func collectRecords(rows pgx.Rows) ([]store.Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Record, error) {
		rec, err := scanRecord(row)
		if err != nil {
			return store.Record{}, err
		}
		return *rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record store: scan rows: %w", err)
	}
	if records == nil {
		records = []store.Record{}
	}
	return records, nil
}
