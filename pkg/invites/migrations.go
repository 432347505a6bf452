package invites

import "github.com/canopyhq/canopy/pkg/storage"

// MigrationComponent names this package in the schema_migrations table.
const MigrationComponent = "invites"

// Migrations returns the schema migrations for the invitation store.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS invitations (
					id TEXT PRIMARY KEY,
					email TEXT NOT NULL,
					agency_id TEXT NOT NULL,
					role TEXT NOT NULL,
					status TEXT NOT NULL,
					token TEXT,
					invited_by TEXT,
					created_at TIMESTAMP NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					accepted_at TIMESTAMP,
					revoked_at TIMESTAMP
				);

				-- At most one pending invitation per (email, agency) pair;
				-- terminal invitations do not block re-inviting.
				CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending
					ON invitations(email, agency_id) WHERE status = 'pending';

				CREATE INDEX IF NOT EXISTS idx_invitations_agency
					ON invitations(agency_id);
				CREATE INDEX IF NOT EXISTS idx_invitations_expiry
					ON invitations(status, expires_at);
			`,
		},
	}
}
