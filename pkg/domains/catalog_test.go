package domains

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/roles"
)

func TestNewBuiltInCatalog(t *testing.T) {
	catalog, err := NewBuiltInCatalog()
	require.NoError(t, err)

	domains := catalog.List()
	assert.Len(t, domains, len(BuiltInDomains()))

	// Every built-in domain must carry a valid minimum role.
	for _, d := range domains {
		assert.True(t, roles.Valid(d.MinRole), "domain %s has invalid min role", d.ID)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	t.Run("rejects invalid min role", func(t *testing.T) {
		_, err := NewCatalog([]Domain{
			{ID: "x", Name: "X", MinRole: roles.Role("nope")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid min role")
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewCatalog([]Domain{
			{ID: "x", Name: "X", MinRole: roles.AccountUser},
			{ID: "x", Name: "X again", MinRole: roles.AccountGuest},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate domain id")
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewCatalog([]Domain{{Name: "anon", MinRole: roles.AccountUser}})
		require.Error(t, err)
	})
}

func TestHasAccess(t *testing.T) {
	catalog, err := NewBuiltInCatalog()
	require.NoError(t, err)

	tests := []struct {
		role     roles.Role
		domainID string
		want     bool
	}{
		{roles.AccountGuest, "dashboard", true},
		{roles.AccountGuest, "contacts", false},
		{roles.AccountUser, "contacts", true},
		{roles.AccountUser, "billing", false},
		{roles.AgencyAdmin, "billing", true},
		{roles.AgencyAdmin, "settings", false},
		{roles.AgencyOwner, "settings", true},
		{roles.AgencyOwner, "dashboard", true},
	}
	for _, tt := range tests {
		got, err := catalog.HasAccess(tt.role, tt.domainID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "HasAccess(%s, %s)", tt.role, tt.domainID)
	}
}

func TestHasAccessUnknownDomain(t *testing.T) {
	catalog, err := NewBuiltInCatalog()
	require.NoError(t, err)

	// Unknown domains must surface as an error, never as a quiet deny.
	_, err = catalog.HasAccess(roles.AgencyOwner, "time-travel")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDomain))
}

func TestListReturnsCopy(t *testing.T) {
	catalog, err := NewBuiltInCatalog()
	require.NoError(t, err)

	first := catalog.List()
	first[0].MinRole = roles.Role("mangled")

	again := catalog.List()
	assert.True(t, roles.Valid(again[0].MinRole), "mutating a List result must not affect the catalog")
}

func TestGet(t *testing.T) {
	catalog, err := NewBuiltInCatalog()
	require.NoError(t, err)

	d, err := catalog.Get("staff")
	require.NoError(t, err)
	assert.Equal(t, roles.AgencyAdmin, d.MinRole)

	_, err = catalog.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownDomain))
}
