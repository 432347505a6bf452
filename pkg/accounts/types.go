// Package accounts provides the account directory: the system of record for
// who an actor is, which role they hold, and which agency they are homed to.
// The authorization engine reads role and home-agency fields here and, on
// agency-scope invitation acceptance, writes them. Ad-hoc sub-account
// visibility lives in the grants package, not here.
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/canopyhq/canopy/pkg/roles"
)

// ErrNotFound indicates no account exists for the lookup key.
var ErrNotFound = errors.New("account not found")

// Account represents a dashboard user
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Role         roles.Role `json:"role"`
	HomeAgencyID string     `json:"home_agency_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SameAs reports whether other is the same account. Identity comparison is
// by id, never by pointer, so two loads of the same row compare equal.
func (a *Account) SameAs(other *Account) bool {
	if a == nil || other == nil {
		return false
	}
	return a.ID == other.ID
}

// Directory is the persistence interface for accounts
type Directory interface {
	// GetByEmail returns the account for email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID returns the account with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Account, error)

	// Create inserts a new account, filling ID and timestamps.
	Create(ctx context.Context, account *Account) error

	// SetRole updates the account's role and home agency. This is the only
	// write path for those fields; it is driven by invitation acceptance and
	// guarded role changes.
	SetRole(ctx context.Context, id string, role roles.Role, homeAgencyID string) error
}
