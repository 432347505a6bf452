package api

import (
	"github.com/canopyhq/canopy/pkg/guard"
	"github.com/canopyhq/canopy/pkg/roles"
)

// RoleAssignmentRequest asks whether the actor may set a target's role
type RoleAssignmentRequest struct {
	TargetAccountID string     `json:"target_account_id"`
	RequestedRole   roles.Role `json:"requested_role"`
}

// GrantMutationRequest toggles a subject's access to a sub-account
type GrantMutationRequest struct {
	SubjectEmail string `json:"subject_email"`
	ResourceID   string `json:"resource_id"`
	Access       bool   `json:"access"`
}

// DecisionResponse carries a guard decision back to the caller
type DecisionResponse struct {
	Allowed bool         `json:"allowed"`
	Reason  guard.Reason `json:"reason"`
	Message string       `json:"message,omitempty"`
}

// CreateInvitationRequest issues an invitation into an agency
type CreateInvitationRequest struct {
	Email    string     `json:"email"`
	AgencyID string     `json:"agency_id"`
	Role     roles.Role `json:"role"`
}

// SetRoleRequest changes an account's role
type SetRoleRequest struct {
	Role roles.Role `json:"role"`
}

func decisionResponse(d guard.Decision) DecisionResponse {
	return DecisionResponse{Allowed: d.Allowed, Reason: d.Reason, Message: d.Message}
}
