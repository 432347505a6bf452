package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/invites"
	"github.com/canopyhq/canopy/pkg/storage"
)

var (
	driver  = flag.String("driver", storage.DriverPostgres, "Database driver (postgres or sqlite3)")
	dsn     = flag.String("dsn", "", "Database connection string")
	timeout = flag.Duration("timeout", 2*time.Minute, "Migration timeout")
)

func main() {
	flag.Parse()

	if *dsn == "" {
		log.Fatal("-dsn is required")
	}

	db, err := storage.Open(storage.Config{Driver: *driver, DSN: *dsn})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	components := []struct {
		name       string
		migrations []storage.Migration
	}{
		{accounts.MigrationComponent, accounts.Migrations()},
		{grants.MigrationComponent, grants.Migrations()},
		{invites.MigrationComponent, invites.Migrations()},
		{audit.MigrationComponent, audit.Migrations()},
	}

	for _, c := range components {
		if err := storage.ApplyMigrations(ctx, db, c.name, c.migrations); err != nil {
			log.Fatalf("Failed to migrate %s: %v", c.name, err)
		}
		log.Printf("✓ %s migrated", c.name)
	}

	log.Println("All migrations applied")
}
