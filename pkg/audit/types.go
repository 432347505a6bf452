// Package audit provides the append-only audit sink for authorization
// events. The engine records every authorization-relevant state change:
// invitation transitions, role changes, grant toggles, and denied attempts.
//
// Appends are fire-and-forget from the engine's perspective: a failed append
// is logged and counted but never rolls back the authorized state change it
// describes.
package audit

import (
	"encoding/json"
	"time"
)

// EventType categorizes an audit event
type EventType string

const (
	EventInviteCreated  EventType = "invite.created"
	EventInviteAccepted EventType = "invite.accepted"
	EventInviteRevoked  EventType = "invite.revoked"
	EventInviteExpired  EventType = "invite.expired"

	EventRoleChanged  EventType = "authz.role_change"
	EventGrantSet     EventType = "authz.grant_set"
	EventAccessDenied EventType = "authz.access_denied"
)

// EventStatus represents the outcome recorded by an event
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusDenied  EventStatus = "denied"
	StatusFailure EventStatus = "failure"
)

// ResourceType identifies what kind of resource an event concerns
type ResourceType string

const (
	ResourceAccount    ResourceType = "account"
	ResourceSubAccount ResourceType = "sub_account"
	ResourceAgency     ResourceType = "agency"
	ResourceInvitation ResourceType = "invitation"
	ResourceGrant      ResourceType = "grant"
)

// Event represents a single audit log entry
type Event struct {
	ID        string      `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	ActorID    string `json:"actor_id,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`

	// Scope
	AgencyID string `json:"agency_id,omitempty"`

	// Resource
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
