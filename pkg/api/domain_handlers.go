package api

import (
	"errors"
	"net/http"

	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/httputil"
	"github.com/canopyhq/canopy/pkg/roles"
)

// listDomains returns the full permission domain catalog
func (s *Server) listDomains(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.catalog.List())
}

// checkDomainAccess decides whether a role may use a domain. The role comes
// from the query string so callers can evaluate hypothetical roles, not just
// the actor's own.
func (s *Server) checkDomainAccess(w http.ResponseWriter, r *http.Request) {
	domainID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	role, err := roles.Parse(httputil.ParseQueryString(r, "role", ""))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	decision, err := s.guard.DomainAccess(role, domainID)
	if errors.Is(err, domains.ErrUnknownDomain) {
		// A domain id outside the catalog is a caller bug, not a denial.
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, decisionResponse(decision))
}
