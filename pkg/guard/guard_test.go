package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/roles"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	catalog, err := domains.NewBuiltInCatalog()
	require.NoError(t, err)
	return New(catalog, observability.NewMetrics(nil))
}

func account(id string, role roles.Role) *accounts.Account {
	return &accounts.Account{ID: id, Email: id + "@agency.test", Role: role, HomeAgencyID: "agency-1"}
}

func TestRoleAssignmentSelfEdit(t *testing.T) {
	g := newTestGuard(t)

	// Self-targeting is denied for every role, owner included; a second load
	// of the same account row must still count as self.
	for _, role := range roles.All() {
		actor := account("a-1", role)
		sameRow := account("a-1", role)
		decision := g.RoleAssignment(actor, sameRow, roles.AccountGuest)
		assert.False(t, decision.Allowed, "role %s", role)
		assert.Equal(t, ReasonSelfEditForbidden, decision.Reason)
	}
}

func TestRoleAssignmentOwner(t *testing.T) {
	g := newTestGuard(t)
	owner := account("a-1", roles.AgencyOwner)

	// The owner may assign any role to any other account, including a second
	// owner; that is the ownership transfer path.
	for _, requested := range roles.All() {
		decision := g.RoleAssignment(owner, account("a-2", roles.AccountUser), requested)
		assert.True(t, decision.Allowed, "requested %s", requested)
	}
}

func TestRoleAssignmentCeiling(t *testing.T) {
	g := newTestGuard(t)

	// Any non-owner actor requesting a role at or above their own is denied,
	// lateral promotion to peer level included.
	for _, actorRole := range []roles.Role{roles.AgencyAdmin, roles.AccountUser, roles.AccountGuest} {
		actor := account("a-1", actorRole)
		for _, requested := range roles.All() {
			if roles.IsStrictlyAbove(actorRole, requested) {
				continue
			}
			decision := g.RoleAssignment(actor, account("a-2", roles.AccountGuest), requested)
			assert.False(t, decision.Allowed, "actor %s requesting %s", actorRole, requested)
			assert.Equal(t, ReasonCeilingViolation, decision.Reason)
		}
	}

	decision := g.RoleAssignment(account("a-1", roles.AgencyAdmin), account("a-2", roles.AccountGuest), roles.AccountUser)
	assert.True(t, decision.Allowed, "admin may assign roles strictly below admin")
	assert.NotEmpty(t, g.RoleAssignment(account("a-1", roles.AccountUser), account("a-2", roles.AccountGuest), roles.AccountUser).Message)
}

func TestRoleAssignmentAdminRoleIsOwnerOnly(t *testing.T) {
	g := newTestGuard(t)

	for _, actorRole := range []roles.Role{roles.AgencyAdmin, roles.AccountUser, roles.AccountGuest} {
		decision := g.RoleAssignment(account("a-1", actorRole), account("a-2", roles.AccountGuest), roles.AgencyAdmin)
		assert.False(t, decision.Allowed, "actor %s", actorRole)
		assert.Equal(t, ReasonCeilingViolation, decision.Reason)
	}

	decision := g.RoleAssignment(account("a-1", roles.AgencyOwner), account("a-2", roles.AccountGuest), roles.AgencyAdmin)
	assert.True(t, decision.Allowed)
}

func TestDomainAccess(t *testing.T) {
	g := newTestGuard(t)

	t.Run("minimum role gates the domain", func(t *testing.T) {
		decision, err := g.DomainAccess(roles.AccountGuest, "dashboard")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		decision, err = g.DomainAccess(roles.AccountGuest, "contacts")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonCeilingViolation, decision.Reason)

		decision, err = g.DomainAccess(roles.AgencyOwner, "settings")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("unknown domain is an error, not a denial", func(t *testing.T) {
		_, err := g.DomainAccess(roles.AgencyOwner, "time-travel")
		assert.ErrorIs(t, err, domains.ErrUnknownDomain)
	})
}

func TestGrantMutation(t *testing.T) {
	g := newTestGuard(t)

	t.Run("owner may toggle anyone", func(t *testing.T) {
		owner := account("a-1", roles.AgencyOwner)
		for _, targetRole := range roles.All() {
			decision := g.GrantMutation(owner, account("a-2", targetRole), "sub-1", true)
			assert.True(t, decision.Allowed, "target %s", targetRole)
		}
	})

	t.Run("admin may toggle only below admin", func(t *testing.T) {
		admin := account("a-1", roles.AgencyAdmin)

		assert.True(t, g.GrantMutation(admin, account("a-2", roles.AccountUser), "sub-1", true).Allowed)
		assert.True(t, g.GrantMutation(admin, account("a-3", roles.AccountGuest), "sub-1", false).Allowed)

		peer := g.GrantMutation(admin, account("a-4", roles.AgencyAdmin), "sub-1", true)
		assert.False(t, peer.Allowed, "peer admin is out of reach")
		assert.Equal(t, ReasonCeilingViolation, peer.Reason)

		up := g.GrantMutation(admin, account("a-5", roles.AgencyOwner), "sub-1", false)
		assert.False(t, up.Allowed)
	})

	t.Run("sub-account roles may not toggle at all", func(t *testing.T) {
		for _, actorRole := range []roles.Role{roles.AccountUser, roles.AccountGuest} {
			decision := g.GrantMutation(account("a-1", actorRole), account("a-2", roles.AccountGuest), "sub-1", true)
			assert.False(t, decision.Allowed, "actor %s", actorRole)
			assert.Equal(t, ReasonCeilingViolation, decision.Reason)
		}
	})
}
