package grants

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no grant row exists for the requested pair. Absence
// of a grant is an ordinary outcome (it means "no access"), distinct from a
// storage failure.
var ErrNotFound = errors.New("grant not found")

// Grant scopes one subject to one sub-account
type Grant struct {
	ID           string    `json:"id"`
	SubjectEmail string    `json:"subject_email"`
	ResourceID   string    `json:"resource_id"`
	Access       bool      `json:"access"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is the persistence interface for grants
type Store interface {
	// Get returns the grant for (email, resourceID), or ErrNotFound.
	Get(ctx context.Context, email, resourceID string) (*Grant, error)

	// ListForSubject returns all grants held by the subject, including
	// revoked ones (access=false).
	ListForSubject(ctx context.Context, email string) ([]*Grant, error)

	// Set upserts the grant for (email, resourceID) to the given access
	// value. The write always happens, even when the value is unchanged, so
	// callers can rely on consistent side effects such as audit records.
	Set(ctx context.Context, email, resourceID string, access bool) (*Grant, error)
}
