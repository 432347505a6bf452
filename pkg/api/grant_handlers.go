package api

import (
	"fmt"
	"net/http"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/httputil"
)

// setGrant toggles a subject's access to a sub-account after a guard check
func (s *Server) setGrant(w http.ResponseWriter, r *http.Request) {
	actor := s.actorFromRequest(w, r)
	if actor == nil {
		return
	}
	var req GrantMutationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.SubjectEmail == "" || req.ResourceID == "" {
		httputil.WriteBadRequest(w, "subject_email and resource_id are required")
		return
	}
	target, err := s.directory.GetByEmail(r.Context(), req.SubjectEmail)
	if err == accounts.ErrNotFound {
		httputil.WriteNotFoundError(w, "subject account not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	decision := s.guard.GrantMutation(actor, target, req.ResourceID, req.Access)
	if !decision.Allowed {
		s.auditDenied(r, actor, audit.ResourceGrant, req.ResourceID, decision.Message)
		httputil.WriteJSON(w, http.StatusForbidden, decisionResponse(decision))
		return
	}

	grant, err := s.grants.Set(r.Context(), req.SubjectEmail, req.ResourceID, req.Access)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.appendAudit(r, &audit.Event{
		Type:         audit.EventGrantSet,
		Status:       audit.StatusSuccess,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		ResourceType: audit.ResourceGrant,
		ResourceID:   req.ResourceID,
		Message:      fmt.Sprintf("access for %s set to %t", req.SubjectEmail, req.Access),
		Metadata:     map[string]string{"subject_email": req.SubjectEmail},
	})
	httputil.WriteSuccess(w, grant)
}

// listGrants returns all grants held by a subject, revoked ones included
func (s *Server) listGrants(w http.ResponseWriter, r *http.Request) {
	subject := httputil.ParseQueryString(r, "subject", "")
	if subject == "" {
		httputil.WriteBadRequest(w, "subject query parameter is required")
		return
	}
	list, err := s.grants.ListForSubject(r.Context(), subject)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []*grants.Grant{}
	}
	httputil.WriteSuccess(w, list)
}
