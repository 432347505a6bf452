package api

import (
	"fmt"
	"net/http"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/httputil"
	"github.com/canopyhq/canopy/pkg/roles"
)

// getAccount returns one account by id
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	account, err := s.directory.GetByID(r.Context(), id)
	if err == accounts.ErrNotFound {
		httputil.WriteNotFoundError(w, "account not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, account)
}

// checkRoleAssignment evaluates a role assignment without applying it
func (s *Server) checkRoleAssignment(w http.ResponseWriter, r *http.Request) {
	actor := s.actorFromRequest(w, r)
	if actor == nil {
		return
	}
	var req RoleAssignmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !roles.Valid(req.RequestedRole) {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown role %q", req.RequestedRole))
		return
	}
	target, err := s.directory.GetByID(r.Context(), req.TargetAccountID)
	if err == accounts.ErrNotFound {
		httputil.WriteNotFoundError(w, "target account not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	decision := s.guard.RoleAssignment(actor, target, req.RequestedRole)
	httputil.WriteSuccess(w, decisionResponse(decision))
}

// setAccountRole applies a guarded role change to the target account
func (s *Server) setAccountRole(w http.ResponseWriter, r *http.Request) {
	actor := s.actorFromRequest(w, r)
	if actor == nil {
		return
	}
	targetID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req SetRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !roles.Valid(req.Role) {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown role %q", req.Role))
		return
	}
	target, err := s.directory.GetByID(r.Context(), targetID)
	if err == accounts.ErrNotFound {
		httputil.WriteNotFoundError(w, "target account not found")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	decision := s.guard.RoleAssignment(actor, target, req.Role)
	if !decision.Allowed {
		s.auditDenied(r, actor, audit.ResourceAccount, target.ID, decision.Message)
		httputil.WriteJSON(w, http.StatusForbidden, decisionResponse(decision))
		return
	}

	// A role change keeps the target homed where it was; re-homing only
	// happens through agency-scope invitation acceptance.
	if err := s.directory.SetRole(r.Context(), target.ID, req.Role, target.HomeAgencyID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.appendAudit(r, &audit.Event{
		Type:         audit.EventRoleChanged,
		Status:       audit.StatusSuccess,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		AgencyID:     target.HomeAgencyID,
		ResourceType: audit.ResourceAccount,
		ResourceID:   target.ID,
		Message:      fmt.Sprintf("role changed to %s", req.Role),
		Metadata:     map[string]string{"new_role": string(req.Role), "old_role": string(target.Role)},
	})

	target.Role = req.Role
	httputil.WriteSuccess(w, target)
}

func (s *Server) auditDenied(r *http.Request, actor *accounts.Account, resourceType audit.ResourceType, resourceID, message string) {
	s.appendAudit(r, &audit.Event{
		Type:         audit.EventAccessDenied,
		Status:       audit.StatusDenied,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Message:      message,
	})
}

func (s *Server) appendAudit(r *http.Request, event *audit.Event) {
	if err := s.auditSink.Append(r.Context(), event); err != nil {
		s.metrics.AuditAppendFailuresTotal.Inc()
		s.logger.WithError(err).WithField("event_type", string(event.Type)).
			Warn("failed to append audit event")
		return
	}
	s.metrics.AuditEventsTotal.WithLabelValues(string(event.Type), string(event.Status)).Inc()
}
