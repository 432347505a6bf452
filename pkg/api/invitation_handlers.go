package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/httputil"
	"github.com/canopyhq/canopy/pkg/invites"
	"github.com/canopyhq/canopy/pkg/roles"
)

// createInvitation issues a pending invitation. Inviting someone is a role
// assignment in disguise, so the same ceiling applies: the actor must be
// allowed to hand out the invited role.
func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	actor := s.actorFromRequest(w, r)
	if actor == nil {
		return
	}
	var req CreateInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.AgencyID == "" {
		httputil.WriteBadRequest(w, "email and agency_id are required")
		return
	}
	if !roles.Valid(req.Role) {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown role %q", req.Role))
		return
	}

	if !roles.IsTop(actor.Role) {
		denied := req.Role == roles.AgencyAdmin || !roles.IsStrictlyAbove(actor.Role, req.Role)
		if denied {
			s.auditDenied(r, actor, audit.ResourceInvitation, req.Email, "cannot invite at or above your own role")
			httputil.WriteForbidden(w, "cannot invite at or above your own role")
			return
		}
	}

	invitation, err := s.lifecycle.Create(r.Context(), req.Email, req.AgencyID, req.Role, actor.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	httputil.WriteCreated(w, invitation)
}

// listInvitations returns all invitations scoped to an agency
func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	agencyID := httputil.ParseQueryString(r, "agency_id", "")
	if agencyID == "" {
		httputil.WriteBadRequest(w, "agency_id query parameter is required")
		return
	}
	list, err := s.invites.ListForAgency(r.Context(), agencyID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []*invites.Invitation{}
	}
	httputil.WriteSuccess(w, list)
}

// acceptInvitation consumes a pending invitation
func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	invitation, err := s.lifecycle.Accept(r.Context(), id)
	if errors.Is(err, invites.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if errors.Is(err, invites.ErrInvalidTransition) {
		httputil.WriteConflict(w, "invitation is no longer pending")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, invitation)
}

// revokeInvitation withdraws a pending invitation
func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	actor := s.actorFromRequest(w, r)
	if actor == nil {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	invitation, err := s.lifecycle.Revoke(r.Context(), id, actor.ID)
	if errors.Is(err, invites.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if errors.Is(err, invites.ErrInvalidTransition) {
		httputil.WriteConflict(w, "invitation is no longer pending")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, invitation)
}
