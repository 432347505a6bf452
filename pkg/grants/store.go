package grants

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/storage"
)

// SQLStore implements Store against PostgreSQL or SQLite
type SQLStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewSQLStore creates a new SQL-backed grant store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// NewInstrumentedSQLStore creates a grant store that records per-operation
// storage metrics.
func NewInstrumentedSQLStore(db *sql.DB, metrics *observability.Metrics) *SQLStore {
	return &SQLStore{db: db, metrics: metrics}
}

func (s *SQLStore) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	// A lookup miss is an ordinary outcome, not a storage failure.
	if err != nil && !storage.IsStorageError(err) {
		err = nil
	}
	s.metrics.ObserveStorageOperation("grants", operation, time.Since(start), err)
}

// Get returns the grant for (email, resourceID), or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, email, resourceID string) (*Grant, error) {
	start := time.Now()
	query := `
		SELECT id, subject_email, resource_id, access, created_at, updated_at
		FROM sub_account_grants
		WHERE subject_email = $1 AND resource_id = $2
	`
	grant := &Grant{}
	err := s.db.QueryRowContext(ctx, query, email, resourceID).Scan(
		&grant.ID, &grant.SubjectEmail, &grant.ResourceID, &grant.Access,
		&grant.CreatedAt, &grant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		s.observe("get", start, ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		err = storage.WrapError("grants.get", err)
		s.observe("get", start, err)
		return nil, err
	}
	s.observe("get", start, nil)
	return grant, nil
}

// ListForSubject returns all grants held by the subject.
func (s *SQLStore) ListForSubject(ctx context.Context, email string) ([]*Grant, error) {
	start := time.Now()
	list, err := s.listForSubject(ctx, email)
	s.observe("list", start, err)
	return list, err
}

func (s *SQLStore) listForSubject(ctx context.Context, email string) ([]*Grant, error) {
	query := `
		SELECT id, subject_email, resource_id, access, created_at, updated_at
		FROM sub_account_grants
		WHERE subject_email = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, storage.WrapError("grants.list", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		grant := &Grant{}
		if err := rows.Scan(
			&grant.ID, &grant.SubjectEmail, &grant.ResourceID, &grant.Access,
			&grant.CreatedAt, &grant.UpdatedAt,
		); err != nil {
			return nil, storage.WrapError("grants.list", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("grants.list", err)
	}

	return grants, nil
}

// Set upserts the grant for (email, resourceID). The unique constraint on
// (subject_email, resource_id) plus the single-statement upsert closes the
// race window between concurrent toggles: the database serializes them and
// at most one row per pair can ever exist.
func (s *SQLStore) Set(ctx context.Context, email, resourceID string, access bool) (*Grant, error) {
	start := time.Now()
	now := time.Now().UTC()
	query := `
		INSERT INTO sub_account_grants (id, subject_email, resource_id, access, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_email, resource_id)
		DO UPDATE SET access = EXCLUDED.access, updated_at = EXCLUDED.updated_at
		RETURNING id, subject_email, resource_id, access, created_at, updated_at
	`
	grant := &Grant{}
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(), email, resourceID, access, now, now,
	).Scan(
		&grant.ID, &grant.SubjectEmail, &grant.ResourceID, &grant.Access,
		&grant.CreatedAt, &grant.UpdatedAt,
	)
	if err != nil {
		err = storage.WrapError("grants.set", err)
		s.observe("set", start, err)
		return nil, err
	}
	s.observe("set", start, nil)
	return grant, nil
}
