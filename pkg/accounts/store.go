package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopyhq/canopy/pkg/roles"
	"github.com/canopyhq/canopy/pkg/storage"
)

// SQLDirectory implements Directory against PostgreSQL or SQLite
type SQLDirectory struct {
	db *sql.DB
}

// NewSQLDirectory creates a new SQL-backed account directory
func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

const accountColumns = `id, email, name, role, home_agency_id, created_at, updated_at`

func scanAccount(row *sql.Row) (*Account, error) {
	account := &Account{}
	var name sql.NullString
	err := row.Scan(
		&account.ID, &account.Email, &name, &account.Role,
		&account.HomeAgencyID, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if name.Valid {
		account.Name = name.String
	}
	return account, nil
}

// GetByEmail returns the account for email, or ErrNotFound.
func (d *SQLDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	account, err := scanAccount(d.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError("accounts.get_by_email", err)
	}
	return account, nil
}

// GetByID returns the account with the given id, or ErrNotFound.
func (d *SQLDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError("accounts.get_by_id", err)
	}
	return account, nil
}

// Create inserts a new account.
func (d *SQLDirectory) Create(ctx context.Context, account *Account) error {
	if !roles.Valid(account.Role) {
		return fmt.Errorf("invalid role %q", account.Role)
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, email, name, role, home_agency_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := d.db.ExecContext(ctx, query,
		account.ID, account.Email, account.Name, account.Role,
		account.HomeAgencyID, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return storage.WrapError("accounts.create", err)
	}
	return nil
}

// SetRole updates the account's role and home agency.
func (d *SQLDirectory) SetRole(ctx context.Context, id string, role roles.Role, homeAgencyID string) error {
	if !roles.Valid(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	query := `UPDATE accounts SET role = $1, home_agency_id = $2, updated_at = $3 WHERE id = $4`
	result, err := d.db.ExecContext(ctx, query, role, homeAgencyID, time.Now().UTC(), id)
	if err != nil {
		return storage.WrapError("accounts.set_role", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storage.WrapError("accounts.set_role", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
