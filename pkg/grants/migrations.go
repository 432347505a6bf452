package grants

import "github.com/canopyhq/canopy/pkg/storage"

// MigrationComponent names this package in the schema_migrations table.
const MigrationComponent = "grants"

// Migrations returns the schema migrations for the grant store.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create sub_account_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sub_account_grants (
					id TEXT PRIMARY KEY,
					subject_email TEXT NOT NULL,
					resource_id TEXT NOT NULL,
					access BOOLEAN NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					UNIQUE (subject_email, resource_id)
				);

				CREATE INDEX IF NOT EXISTS idx_sub_account_grants_subject
					ON sub_account_grants(subject_email);
				CREATE INDEX IF NOT EXISTS idx_sub_account_grants_resource
					ON sub_account_grants(resource_id);
			`,
		},
	}
}
