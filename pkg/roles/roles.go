package roles

import "fmt"

// Role represents an agency-level role
type Role string

const (
	AgencyOwner  Role = "agency_owner"  // Full control, may transfer ownership
	AgencyAdmin  Role = "agency_admin"  // Agency staff
	AccountUser  Role = "account_user"  // Sub-account member
	AccountGuest Role = "account_guest" // Sub-account guest
)

// ScopeKind describes what assigning a role affects
type ScopeKind string

const (
	// ScopeAgency roles re-home the account to the inviting agency.
	ScopeAgency ScopeKind = "agency"
	// ScopeSubAccount roles grant access to one sub-account only.
	ScopeSubAccount ScopeKind = "sub_account"
)

// levels is the single source of truth for the ordering. Strictly higher
// level means strictly more privilege; there are no ties.
var levels = map[Role]int{
	AgencyOwner:  4,
	AgencyAdmin:  3,
	AccountUser:  2,
	AccountGuest: 1,
}

var scopeKinds = map[Role]ScopeKind{
	AgencyOwner:  ScopeAgency,
	AgencyAdmin:  ScopeAgency,
	AccountUser:  ScopeSubAccount,
	AccountGuest: ScopeSubAccount,
}

// All returns every role, highest privilege first.
func All() []Role {
	return []Role{AgencyOwner, AgencyAdmin, AccountUser, AccountGuest}
}

// Valid reports whether r is a member of the closed role set.
func Valid(r Role) bool {
	_, ok := levels[r]
	return ok
}

// Parse converts a string into a Role, rejecting unknown tags.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !Valid(r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Level returns the privilege level of r. Unknown roles get level 0, below
// every real role.
func Level(r Role) int {
	return levels[r]
}

// IsAtLeast reports whether r has at least the privilege of min.
func IsAtLeast(r, min Role) bool {
	return Level(r) >= Level(min)
}

// IsStrictlyAbove reports whether a outranks b.
func IsStrictlyAbove(a, b Role) bool {
	return Level(a) > Level(b)
}

// Scope returns the scope kind of r.
func Scope(r Role) ScopeKind {
	return scopeKinds[r]
}

// Top returns the highest role in the hierarchy.
func Top() Role {
	return AgencyOwner
}

// IsTop reports whether r is the highest role.
func IsTop(r Role) bool {
	return r == AgencyOwner
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for r.
func (r Role) DisplayName() string {
	switch r {
	case AgencyOwner:
		return "Agency Owner"
	case AgencyAdmin:
		return "Agency Admin"
	case AccountUser:
		return "Account User"
	case AccountGuest:
		return "Account Guest"
	default:
		return string(r)
	}
}
