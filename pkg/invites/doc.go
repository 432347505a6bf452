// Package invites implements the invitation lifecycle: the state machine
// that turns an email-scoped invitation into either a role assignment or a
// sub-account grant.
//
// # States
//
// An invitation is pending, accepted, or revoked. Accepted and revoked are
// terminal; only pending invitations may transition, and the pending to
// accepted step is a compare-and-swap at the storage layer so concurrent
// accept attempts cannot both succeed.
//
// # Acceptance semantics
//
// What acceptance does depends on the scope kind of the invited role:
//
//   - Agency-scope roles (owner, admin) set the account's role and re-home
//     the account to the inviting agency.
//   - Sub-account-scope roles (user, guest) leave the account's role and
//     home agency strictly untouched and instead write an access grant for
//     the invitation's agency. An invitee who already belongs to a different
//     agency is never silently re-homed or demoted.
//
// At most one pending invitation exists per (email, agency) pair; creating a
// second returns the first unchanged.
package invites
