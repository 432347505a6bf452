package accounts

import "github.com/canopyhq/canopy/pkg/storage"

// MigrationComponent names this package in the schema_migrations table.
const MigrationComponent = "accounts"

// Migrations returns the schema migrations for the account directory.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create accounts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					email TEXT NOT NULL UNIQUE,
					name TEXT,
					role TEXT NOT NULL,
					home_agency_id TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_accounts_home_agency
					ON accounts(home_agency_id);
			`,
		},
	}
}
