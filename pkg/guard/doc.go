// Package guard is the authorization decision point. Every mutating
// operation on roles and grants asks the guard first; the guard consults the
// role hierarchy, the domain catalog, and the two accounts involved, and
// returns an allow/deny decision with a reason code.
//
// Decisions are pure values. A denial is an ordinary outcome, not an error;
// errors are reserved for configuration bugs (unknown domain ids) and the
// guard never touches storage. The caller applies the state change and emits
// the audit record only after an allow.
package guard
