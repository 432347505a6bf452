package grants

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and sqlite-less local
// development. Upsert semantics match the SQL store: one row per
// (subject, resource) pair, serialized by the store mutex.
type MemoryStore struct {
	mu     sync.Mutex
	grants map[string]*Grant
}

// NewMemoryStore creates an empty in-memory grant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[string]*Grant)}
}

func memKey(email, resourceID string) string {
	return email + "\x00" + resourceID
}

// Get returns the grant for (email, resourceID), or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, email, resourceID string) (*Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grant, ok := m.grants[memKey(email, resourceID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *grant
	return &cp, nil
}

// ListForSubject returns all grants held by the subject.
func (m *MemoryStore) ListForSubject(ctx context.Context, email string) ([]*Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Grant
	for _, grant := range m.grants {
		if grant.SubjectEmail == email {
			cp := *grant
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Set upserts the grant for (email, resourceID).
func (m *MemoryStore) Set(ctx context.Context, email, resourceID string, access bool) (*Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(email, resourceID)
	now := time.Now().UTC()
	grant, ok := m.grants[key]
	if ok {
		grant.Access = access
		grant.UpdatedAt = now
	} else {
		grant = &Grant{
			ID:           uuid.NewString(),
			SubjectEmail: email,
			ResourceID:   resourceID,
			Access:       access,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		m.grants[key] = grant
	}
	cp := *grant
	return &cp, nil
}

// Len returns the number of grant rows, for test assertions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grants)
}
