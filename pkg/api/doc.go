// Package api exposes the authorization engine over HTTP. It is a thin
// transport layer: every mutating route asks the guard first, applies the
// state change through the owning store only on an allow, and emits one
// audit event per applied change.
//
// The acting account is identified by the X-Actor-ID header, resolved
// against the account directory. Authentication of that header is the
// surrounding system's job; this service decides what an already
// authenticated actor may do.
package api
