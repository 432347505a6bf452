package invites

import (
	"context"
	"errors"
	"time"

	"github.com/canopyhq/canopy/pkg/roles"
)

// Status represents the invitation lifecycle state
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
)

// Terminal reports whether no further transition is valid from s.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRevoked
}

var (
	// ErrNotFound indicates no invitation exists for the given id.
	ErrNotFound = errors.New("invitation not found")

	// ErrInvalidTransition indicates a state machine misuse: accepting or
	// revoking an invitation that is not pending.
	ErrInvalidTransition = errors.New("invalid invitation transition")
)

// Invitation represents an email-scoped invitation into an agency
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	AgencyID   string     `json:"agency_id"`
	Role       roles.Role `json:"role"`
	Status     Status     `json:"status"`
	Token      string     `json:"token,omitempty"`
	InvitedBy  string     `json:"invited_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Store is the persistence interface for invitations
type Store interface {
	// CreateOrGetPending inserts a new pending invitation unless one already
	// exists for (email, agencyID); the existing one is returned unchanged.
	// The boolean reports whether a new row was created.
	CreateOrGetPending(ctx context.Context, invitation *Invitation) (*Invitation, bool, error)

	// GetByID returns the invitation with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Invitation, error)

	// ListForAgency returns all invitations scoped to the agency, newest
	// first.
	ListForAgency(ctx context.Context, agencyID string) ([]*Invitation, error)

	// MarkAccepted transitions pending to accepted as a single
	// compare-and-swap. The loser of a race, or any call on a terminal
	// invitation, gets ErrInvalidTransition.
	MarkAccepted(ctx context.Context, id string, at time.Time) error

	// MarkRevoked transitions pending to revoked, CAS like MarkAccepted.
	MarkRevoked(ctx context.Context, id string, at time.Time) error

	// ListExpiredPending returns pending invitations whose expiry is at or
	// before asOf.
	ListExpiredPending(ctx context.Context, asOf time.Time) ([]*Invitation, error)
}
