package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canopyhq/canopy/pkg/roles"
)

// MemoryDirectory is an in-memory Directory used in tests and local
// development.
type MemoryDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*Account
	byID    map[string]*Account
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byEmail: make(map[string]*Account),
		byID:    make(map[string]*Account),
	}
}

// GetByEmail returns the account for email, or ErrNotFound.
func (m *MemoryDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// GetByID returns the account with the given id, or ErrNotFound.
func (m *MemoryDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// Create inserts a new account.
func (m *MemoryDirectory) Create(ctx context.Context, account *Account) error {
	if !roles.Valid(account.Role) {
		return fmt.Errorf("invalid role %q", account.Role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[account.Email]; exists {
		return fmt.Errorf("account %q already exists", account.Email)
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	cp := *account
	m.byEmail[cp.Email] = &cp
	m.byID[cp.ID] = &cp
	return nil
}

// SetRole updates the account's role and home agency.
func (m *MemoryDirectory) SetRole(ctx context.Context, id string, role roles.Role, homeAgencyID string) error {
	if !roles.Valid(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	account.Role = role
	account.HomeAgencyID = homeAgencyID
	account.UpdatedAt = time.Now().UTC()
	return nil
}
