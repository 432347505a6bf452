package audit

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/canopyhq/canopy/pkg/storage"
)

// MigrationComponent names this package in the schema_migrations table.
const MigrationComponent = "audit"

// Migrations returns the schema migrations for the audit log table.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id TEXT PRIMARY KEY,
					timestamp TIMESTAMP NOT NULL,
					event_type TEXT NOT NULL,
					status TEXT NOT NULL,
					actor_id TEXT,
					actor_email TEXT,
					agency_id TEXT,
					resource_type TEXT,
					resource_id TEXT,
					message TEXT,
					metadata TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp
					ON audit_events(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_events_actor
					ON audit_events(actor_email);
				CREATE INDEX IF NOT EXISTS idx_audit_events_resource
					ON audit_events(resource_type, resource_id);
			`,
		},
	}
}

// DBSink appends audit events to the database. The table is append-only:
// this sink exposes no update or delete path.
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a database-backed audit sink.
func NewDBSink(db *sql.DB) *DBSink {
	return &DBSink{db: db}
}

// Append inserts one event row.
func (s *DBSink) Append(ctx context.Context, event *Event) error {
	prepare(event)

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return storage.WrapError("audit.append", err)
		}
	}

	query := `
		INSERT INTO audit_events (id, timestamp, event_type, status, actor_id, actor_email,
			agency_id, resource_type, resource_id, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.Type, event.Status,
		nullable(event.ActorID), nullable(event.ActorEmail), nullable(event.AgencyID),
		nullable(string(event.ResourceType)), nullable(event.ResourceID),
		nullable(event.Message), nullableBytes(metadataJSON),
	)
	if err != nil {
		return storage.WrapError("audit.append", err)
	}
	return nil
}

// Close is a no-op; the sink does not own the database handle.
func (s *DBSink) Close() error { return nil }

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
