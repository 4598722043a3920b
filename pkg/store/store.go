// Package store defines the persistence contracts for finished dictation
// sessions: the clinical record store and an in-memory reference
// implementation. The postgres subpackage provides the durable backend.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DandaAkhilReddy/audicia/internal/soap"
	"github.com/DandaAkhilReddy/audicia/internal/validate"
)

// ErrNotFound is returned by lookups for sessions that were never saved.
var ErrNotFound = errors.New("store: record not found")

// Record is the persisted output of one completed dictation session.
//
// MaskedText is the de-identified transcript and is the only transcript form
// that may be stored; the raw dictation never reaches the store.
type Record struct {
	SessionID  string           `json:"session_id"`
	Document   *soap.Document   `json:"document"`
	MaskedText string           `json:"masked_text"`
	Quality    float64          `json:"quality"`
	Accuracy   float64          `json:"accuracy"`
	Issues     []validate.Issue `json:"issues"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RecordStore persists completed session records. Implementations must be
// safe for concurrent use. SaveRecord upserts: reprocessing a session
// replaces its earlier record.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, sessionID string) (*Record, error)
	ListRecords(ctx context.Context, limit int) ([]Record, error)
}

// MemoryStore is an in-process RecordStore. Used in tests and as the default
// when no durable backend is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// SaveRecord implements RecordStore.
func (s *MemoryStore) SaveRecord(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.SessionID]; !exists {
		s.order = append(s.order, rec.SessionID)
	}
	s.records[rec.SessionID] = rec
	return nil
}

// GetRecord implements RecordStore.
func (s *MemoryStore) GetRecord(_ context.Context, sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ListRecords implements RecordStore. Records come back newest first.
func (s *MemoryStore) ListRecords(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}
