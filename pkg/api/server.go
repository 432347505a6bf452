package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/guard"
	"github.com/canopyhq/canopy/pkg/httputil"
	"github.com/canopyhq/canopy/pkg/invites"
	"github.com/canopyhq/canopy/pkg/observability"
)

// Server represents the authorization API server
type Server struct {
	router *mux.Router

	guard     *guard.Guard
	catalog   *domains.Catalog
	directory accounts.Directory
	grants    grants.Store
	lifecycle *invites.Lifecycle
	invites   invites.Store
	auditSink audit.Sink

	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer creates a new API server and registers its routes.
func NewServer(
	g *guard.Guard,
	catalog *domains.Catalog,
	directory accounts.Directory,
	grantStore grants.Store,
	lifecycle *invites.Lifecycle,
	inviteStore invites.Store,
	auditSink audit.Sink,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		guard:     g,
		catalog:   catalog,
		directory: directory,
		grants:    grantStore,
		lifecycle: lifecycle,
		invites:   inviteStore,
		auditSink: auditSink,
		logger:    logger,
		metrics:   metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Domain catalog routes
	s.router.HandleFunc("/v1/domains", s.listDomains).Methods("GET")
	s.router.HandleFunc("/v1/domains/{id}/access", s.checkDomainAccess).Methods("GET")

	// Account routes
	s.router.HandleFunc("/v1/accounts/{id}", s.getAccount).Methods("GET")
	s.router.HandleFunc("/v1/accounts/{id}/role", s.setAccountRole).Methods("PUT")

	// Decision-only routes (dry runs, no state change)
	s.router.HandleFunc("/v1/authz/role-assignment", s.checkRoleAssignment).Methods("POST")

	// Grant routes
	s.router.HandleFunc("/v1/grants", s.setGrant).Methods("PUT")
	s.router.HandleFunc("/v1/grants", s.listGrants).Methods("GET")

	// Invitation routes
	s.router.HandleFunc("/v1/invitations", s.createInvitation).Methods("POST")
	s.router.HandleFunc("/v1/invitations", s.listInvitations).Methods("GET")
	s.router.HandleFunc("/v1/invitations/{id}/accept", s.acceptInvitation).Methods("POST")
	s.router.HandleFunc("/v1/invitations/{id}", s.revokeInvitation).Methods("DELETE")
}

// Router returns the bare router, used by tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped in the standard middleware chain and
// otel instrumentation.
func (s *Server) Handler() http.Handler {
	handler := httputil.Chain(s.router,
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.MetricsMiddleware(s.metrics),
		httputil.RecoveryMiddleware(s.logger),
	)
	return otelhttp.NewHandler(handler, "canopy-api")
}

// actorFromRequest resolves the acting account from the X-Actor-ID header.
// A missing header or unknown id writes the error response and returns nil.
func (s *Server) actorFromRequest(w http.ResponseWriter, r *http.Request) *accounts.Account {
	actorID := r.Header.Get("X-Actor-ID")
	if actorID == "" {
		httputil.WriteUnauthorized(w, "missing X-Actor-ID header")
		return nil
	}
	actor, err := s.directory.GetByID(r.Context(), actorID)
	if err == accounts.ErrNotFound {
		httputil.WriteUnauthorized(w, "unknown acting account")
		return nil
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil
	}
	return actor
}

// writeStoreError maps a persistence failure to a transient 503. Storage
// failures must never surface as authorization denials.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithField("path", r.URL.Path).Error("storage failure")
	httputil.WriteServiceUnavailable(w, "storage temporarily unavailable")
}
