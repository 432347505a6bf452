// Package grants persists explicit per-user sub-account access grants.
//
// A grant scopes one subject (identified by email) to one sub-account,
// independent of the subject's role. The default state for any
// (subject, sub-account) pair is "no grant", which means no access. Toggling
// access is a single atomic upsert backed by a unique constraint on the pair,
// so concurrent toggles can never produce duplicate rows. Revocation flips
// access to false; rows are never deleted, preserving the audit trail.
//
// The SQL store runs against PostgreSQL in production and SQLite for local
// development. An optional Redis read-through cache wraps the store for
// hot-path lookups and invalidates on every write.
package grants
