package invites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests. Transitions follow the
// same compare-and-swap semantics as the SQL store.
type MemoryStore struct {
	mu          sync.Mutex
	invitations map[string]*Invitation
}

// NewMemoryStore creates an empty in-memory invitation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invitations: make(map[string]*Invitation)}
}

// CreateOrGetPending inserts a new pending invitation unless one exists.
func (m *MemoryStore) CreateOrGetPending(ctx context.Context, invitation *Invitation) (*Invitation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invitations {
		if existing.Email == invitation.Email && existing.AgencyID == invitation.AgencyID && existing.Status == StatusPending {
			cp := *existing
			return &cp, false, nil
		}
	}

	cp := *invitation
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, false, err
		}
		cp.Token = token
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	cp.Status = StatusPending
	m.invitations[cp.ID] = &cp

	out := cp
	return &out, true, nil
}

// GetByID returns the invitation with the given id, or ErrNotFound.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation, ok := m.invitations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *invitation
	return &cp, nil
}

// ListForAgency returns all invitations scoped to the agency, newest first.
func (m *MemoryStore) ListForAgency(ctx context.Context, agencyID string) ([]*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Invitation
	for _, invitation := range m.invitations {
		if invitation.AgencyID == agencyID {
			cp := *invitation
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkAccepted transitions pending to accepted.
func (m *MemoryStore) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	return m.transition(id, StatusAccepted, at)
}

// MarkRevoked transitions pending to revoked.
func (m *MemoryStore) MarkRevoked(ctx context.Context, id string, at time.Time) error {
	return m.transition(id, StatusRevoked, at)
}

func (m *MemoryStore) transition(id string, to Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation, ok := m.invitations[id]
	if !ok {
		return ErrNotFound
	}
	if invitation.Status != StatusPending {
		return ErrInvalidTransition
	}
	invitation.Status = to
	switch to {
	case StatusAccepted:
		invitation.AcceptedAt = &at
	case StatusRevoked:
		invitation.RevokedAt = &at
	}
	return nil
}

// ListExpiredPending returns pending invitations whose expiry is at or
// before asOf.
func (m *MemoryStore) ListExpiredPending(ctx context.Context, asOf time.Time) ([]*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Invitation
	for _, invitation := range m.invitations {
		if invitation.Status == StatusPending && !invitation.ExpiresAt.After(asOf) {
			cp := *invitation
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}
