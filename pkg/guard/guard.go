package guard

import (
	"fmt"
	"time"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/roles"
)

// Guard evaluates authorization requests. It holds no mutable state and is
// safe for concurrent use.
type Guard struct {
	catalog *domains.Catalog
	metrics *observability.Metrics
}

// New creates a guard over the given domain catalog. Metrics may be nil.
func New(catalog *domains.Catalog, metrics *observability.Metrics) *Guard {
	return &Guard{catalog: catalog, metrics: metrics}
}

// RoleAssignment decides whether actor may set target's role to requested.
//
// Self-targeting is denied before anything else is considered. The owner may
// assign any role to any other account, which is also the only path for
// ownership transfer. Every other actor must strictly outrank the requested
// role, and the admin role can only ever be handed out by the owner.
func (g *Guard) RoleAssignment(actor, target *accounts.Account, requested roles.Role) Decision {
	start := time.Now()
	decision := g.roleAssignment(actor, target, requested)
	g.observe("role_assignment", decision, start)
	return decision
}

func (g *Guard) roleAssignment(actor, target *accounts.Account, requested roles.Role) Decision {
	if actor.SameAs(target) {
		return deny(ReasonSelfEditForbidden, "cannot change your own role; ask another account with sufficient privilege")
	}
	if roles.IsTop(actor.Role) {
		return allow()
	}
	if requested == roles.AgencyAdmin {
		return deny(ReasonCeilingViolation, fmt.Sprintf("only %s may assign %s", roles.Top().DisplayName(), requested.DisplayName()))
	}
	if !roles.IsStrictlyAbove(actor.Role, requested) {
		return deny(ReasonCeilingViolation, "cannot assign a role at or above your own")
	}
	return allow()
}

// DomainAccess decides whether role may use the given permission domain.
// An unregistered domain id is a configuration bug and comes back as
// domains.ErrUnknownDomain, never as a denial.
func (g *Guard) DomainAccess(role roles.Role, domainID string) (Decision, error) {
	start := time.Now()
	ok, err := g.catalog.HasAccess(role, domainID)
	if err != nil {
		return Decision{}, err
	}

	var decision Decision
	if ok {
		decision = allow()
	} else {
		decision = deny(ReasonCeilingViolation, fmt.Sprintf("%s does not meet the minimum role for domain %q", role.DisplayName(), domainID))
	}
	g.observe("domain_access", decision, start)
	return decision, nil
}

// GrantMutation decides whether actor may toggle target's access to a
// sub-account. The owner may always; an admin may for accounts strictly
// below admin level but never for a peer admin or the owner.
func (g *Guard) GrantMutation(actor, target *accounts.Account, resourceID string, desiredAccess bool) Decision {
	start := time.Now()
	decision := g.grantMutation(actor, target)
	g.observe("grant_mutation", decision, start)
	return decision
}

func (g *Guard) grantMutation(actor, target *accounts.Account) Decision {
	if roles.IsTop(actor.Role) {
		return allow()
	}
	if actor.Role == roles.AgencyAdmin && roles.IsStrictlyAbove(roles.AgencyAdmin, target.Role) {
		return allow()
	}
	return deny(ReasonCeilingViolation, "cannot change access for an account at or above your own level")
}

func (g *Guard) observe(kind string, decision Decision, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveDecision(kind, decision.Allowed, string(decision.Reason), time.Since(start))
}
