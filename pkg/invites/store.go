package invites

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopyhq/canopy/pkg/storage"
)

// SQLStore implements Store against PostgreSQL or SQLite
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQL-backed invitation store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const invitationColumns = `id, email, agency_id, role, status, token, invited_by, created_at, expires_at, accepted_at, revoked_at`

func scanInvitation(scan func(dest ...interface{}) error) (*Invitation, error) {
	invitation := &Invitation{}
	var token, invitedBy sql.NullString
	var acceptedAt, revokedAt sql.NullTime
	err := scan(
		&invitation.ID, &invitation.Email, &invitation.AgencyID, &invitation.Role,
		&invitation.Status, &token, &invitedBy, &invitation.CreatedAt,
		&invitation.ExpiresAt, &acceptedAt, &revokedAt,
	)
	if err != nil {
		return nil, err
	}
	if token.Valid {
		invitation.Token = token.String
	}
	if invitedBy.Valid {
		invitation.InvitedBy = invitedBy.String
	}
	if acceptedAt.Valid {
		invitation.AcceptedAt = &acceptedAt.Time
	}
	if revokedAt.Valid {
		invitation.RevokedAt = &revokedAt.Time
	}
	return invitation, nil
}

// CreateOrGetPending inserts a new pending invitation unless one exists.
// The partial unique index on pending (email, agency_id) rows closes the
// race: a concurrent insert loses with a constraint violation and re-reads
// the winner's row.
func (s *SQLStore) CreateOrGetPending(ctx context.Context, invitation *Invitation) (*Invitation, bool, error) {
	existing, err := s.getPending(ctx, invitation.Email, invitation.AgencyID)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrNotFound {
		return nil, false, err
	}

	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}
	if invitation.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}
		invitation.Token = token
	}
	now := time.Now().UTC()
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = now
	}
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	invitation.Status = StatusPending

	query := `
		INSERT INTO invitations (id, email, agency_id, role, status, token, invited_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		invitation.ID, invitation.Email, invitation.AgencyID, invitation.Role,
		invitation.Status, invitation.Token, invitation.InvitedBy,
		invitation.CreatedAt, invitation.ExpiresAt,
	)
	if err != nil {
		// Likely lost a race on the pending unique index; return the winner.
		if existing, getErr := s.getPending(ctx, invitation.Email, invitation.AgencyID); getErr == nil {
			return existing, false, nil
		}
		return nil, false, storage.WrapError("invites.create", err)
	}

	cp := *invitation
	return &cp, true, nil
}

func (s *SQLStore) getPending(ctx context.Context, email, agencyID string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
		WHERE email = $1 AND agency_id = $2 AND status = $3`
	row := s.db.QueryRowContext(ctx, query, email, agencyID, StatusPending)
	invitation, err := scanInvitation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError("invites.get_pending", err)
	}
	return invitation, nil
}

// GetByID returns the invitation with the given id.
func (s *SQLStore) GetByID(ctx context.Context, id string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, id)
	invitation, err := scanInvitation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError("invites.get", err)
	}
	return invitation, nil
}

// ListForAgency returns all invitations scoped to the agency.
func (s *SQLStore) ListForAgency(ctx context.Context, agencyID string) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
		WHERE agency_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, agencyID)
	if err != nil {
		return nil, storage.WrapError("invites.list", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		invitation, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, storage.WrapError("invites.list", err)
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("invites.list", err)
	}
	return invitations, nil
}

// MarkAccepted transitions pending to accepted. The WHERE clause on status
// makes the transition a compare-and-swap: of two concurrent accepts exactly
// one updates a row, the other sees zero rows affected.
func (s *SQLStore) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `UPDATE invitations SET status = $1, accepted_at = $2
		WHERE id = $3 AND status = $4`, StatusAccepted, at)
}

// MarkRevoked transitions pending to revoked.
func (s *SQLStore) MarkRevoked(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `UPDATE invitations SET status = $1, revoked_at = $2
		WHERE id = $3 AND status = $4`, StatusRevoked, at)
}

func (s *SQLStore) transition(ctx context.Context, id, query string, to Status, at time.Time) error {
	result, err := s.db.ExecContext(ctx, query, to, at, id, StatusPending)
	if err != nil {
		return storage.WrapError("invites.transition", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storage.WrapError("invites.transition", err)
	}
	if rowsAffected == 0 {
		// Either the invitation does not exist or it already left pending.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidTransition
	}
	return nil
}

// ListExpiredPending returns pending invitations past their expiry.
func (s *SQLStore) ListExpiredPending(ctx context.Context, asOf time.Time) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
		WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at ASC`
	rows, err := s.db.QueryContext(ctx, query, StatusPending, asOf)
	if err != nil {
		return nil, storage.WrapError("invites.list_expired", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		invitation, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, storage.WrapError("invites.list_expired", err)
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("invites.list_expired", err)
	}
	return invitations, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
