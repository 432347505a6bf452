package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/guard"
	"github.com/canopyhq/canopy/pkg/invites"
	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/roles"
)

type testServer struct {
	server    *Server
	directory *accounts.MemoryDirectory
	grants    *grants.MemoryStore
	invites   *invites.MemoryStore

	owner *accounts.Account
	admin *accounts.Account
	user  *accounts.Account
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	catalog, err := domains.NewBuiltInCatalog()
	require.NoError(t, err)

	ts := &testServer{
		directory: accounts.NewMemoryDirectory(),
		grants:    grants.NewMemoryStore(),
		invites:   invites.NewMemoryStore(),
	}

	ctx := context.Background()
	ts.owner = &accounts.Account{Email: "owner@agency.test", Role: roles.AgencyOwner, HomeAgencyID: "agency-1"}
	ts.admin = &accounts.Account{Email: "admin@agency.test", Role: roles.AgencyAdmin, HomeAgencyID: "agency-1"}
	ts.user = &accounts.Account{Email: "user@agency.test", Role: roles.AccountUser, HomeAgencyID: "agency-1"}
	for _, account := range []*accounts.Account{ts.owner, ts.admin, ts.user} {
		require.NoError(t, ts.directory.Create(ctx, account))
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(nil)
	lifecycle := invites.NewLifecycle(ts.invites, ts.directory, ts.grants, audit.NopSink{}, logger, metrics)

	ts.server = NewServer(
		guard.New(catalog, metrics),
		catalog,
		ts.directory,
		ts.grants,
		lifecycle,
		ts.invites,
		audit.NopSink{},
		logger,
		metrics,
	)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	r := httptest.NewRequest(method, path, reader)
	if actorID != "" {
		r.Header.Set("X-Actor-ID", actorID)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, r)
	return w
}

func decodeDecision(t *testing.T, w *httptest.ResponseRecorder) DecisionResponse {
	t.Helper()
	var decision DecisionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	return decision
}

func TestListDomains(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "GET", "/v1/domains", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []domains.Domain
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, len(domains.BuiltInDomains()))
}

func TestCheckDomainAccess(t *testing.T) {
	ts := newTestServer(t)

	t.Run("guest below the minimum role", func(t *testing.T) {
		w := ts.do(t, "GET", "/v1/domains/contacts/access?role=account_guest", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decision := decodeDecision(t, w)
		assert.False(t, decision.Allowed)
		assert.Equal(t, guard.ReasonCeilingViolation, decision.Reason)
	})

	t.Run("owner everywhere", func(t *testing.T) {
		w := ts.do(t, "GET", "/v1/domains/settings/access?role=agency_owner", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeDecision(t, w).Allowed)
	})

	t.Run("unknown domain is 404, not a denial", func(t *testing.T) {
		w := ts.do(t, "GET", "/v1/domains/time-travel/access?role=agency_owner", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown role is 400", func(t *testing.T) {
		w := ts.do(t, "GET", "/v1/domains/contacts/access?role=superuser", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSetAccountRole(t *testing.T) {
	t.Run("owner promotes a user", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/accounts/"+ts.user.ID+"/role", ts.owner.ID, SetRoleRequest{Role: roles.AgencyAdmin})
		require.Equal(t, http.StatusOK, w.Code)

		account, err := ts.directory.GetByID(context.Background(), ts.user.ID)
		require.NoError(t, err)
		assert.Equal(t, roles.AgencyAdmin, account.Role)
		assert.Equal(t, "agency-1", account.HomeAgencyID, "role change never re-homes")
	})

	t.Run("self edit is forbidden even for the owner", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/accounts/"+ts.owner.ID+"/role", ts.owner.ID, SetRoleRequest{Role: roles.AccountUser})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, guard.ReasonSelfEditForbidden, decodeDecision(t, w).Reason)

		account, err := ts.directory.GetByID(context.Background(), ts.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, roles.AgencyOwner, account.Role, "denied change must not apply")
	})

	t.Run("admin cannot mint another admin", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/accounts/"+ts.user.ID+"/role", ts.admin.ID, SetRoleRequest{Role: roles.AgencyAdmin})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, guard.ReasonCeilingViolation, decodeDecision(t, w).Reason)
	})

	t.Run("missing actor header", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/accounts/"+ts.user.ID+"/role", "", SetRoleRequest{Role: roles.AccountGuest})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown target", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/accounts/a-missing/role", ts.owner.ID, SetRoleRequest{Role: roles.AccountGuest})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCheckRoleAssignment(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/v1/authz/role-assignment", ts.admin.ID, RoleAssignmentRequest{
		TargetAccountID: ts.user.ID,
		RequestedRole:   roles.AgencyAdmin,
	})
	require.Equal(t, http.StatusOK, w.Code)
	decision := decodeDecision(t, w)
	assert.False(t, decision.Allowed)

	// A dry run never mutates.
	account, err := ts.directory.GetByID(context.Background(), ts.user.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.AccountUser, account.Role)
}

func TestSetGrant(t *testing.T) {
	t.Run("owner toggles anyone", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/grants", ts.owner.ID, GrantMutationRequest{
			SubjectEmail: ts.admin.Email, ResourceID: "sub-1", Access: true,
		})
		require.Equal(t, http.StatusOK, w.Code)

		grant, err := ts.grants.Get(context.Background(), ts.admin.Email, "sub-1")
		require.NoError(t, err)
		assert.True(t, grant.Access)
	})

	t.Run("admin denied for a peer admin", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/grants", ts.admin.ID, GrantMutationRequest{
			SubjectEmail: ts.admin.Email, ResourceID: "sub-1", Access: true,
		})
		require.Equal(t, http.StatusForbidden, w.Code)

		_, err := ts.grants.Get(context.Background(), ts.admin.Email, "sub-1")
		assert.ErrorIs(t, err, grants.ErrNotFound, "denied toggle must not write")
	})

	t.Run("admin allowed below admin", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/grants", ts.admin.ID, GrantMutationRequest{
			SubjectEmail: ts.user.Email, ResourceID: "sub-1", Access: true,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown subject", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(t, "PUT", "/v1/grants", ts.owner.ID, GrantMutationRequest{
			SubjectEmail: "ghost@agency.test", ResourceID: "sub-1", Access: true,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListGrants(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	_, err := ts.grants.Set(ctx, ts.user.Email, "sub-1", true)
	require.NoError(t, err)
	_, err = ts.grants.Set(ctx, ts.user.Email, "sub-2", false)
	require.NoError(t, err)

	w := ts.do(t, "GET", "/v1/grants?subject="+ts.user.Email, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []*grants.Grant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2, "revoked grants stay listed")

	w = ts.do(t, "GET", "/v1/grants", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvitationFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	w := ts.do(t, "POST", "/v1/invitations", ts.owner.ID, CreateInvitationRequest{
		Email: "new@corp.test", AgencyID: "agency-1", Role: roles.AccountUser,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invitation invites.Invitation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invitation))

	// Repeat create returns the same pending invitation.
	w = ts.do(t, "POST", "/v1/invitations", ts.owner.ID, CreateInvitationRequest{
		Email: "new@corp.test", AgencyID: "agency-1", Role: roles.AccountUser,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var repeat invites.Invitation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &repeat))
	assert.Equal(t, invitation.ID, repeat.ID)

	w = ts.do(t, "GET", "/v1/invitations?agency_id=agency-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*invites.Invitation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = ts.do(t, "POST", fmt.Sprintf("/v1/invitations/%s/accept", invitation.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	grant, err := ts.grants.Get(ctx, "new@corp.test", "agency-1")
	require.NoError(t, err)
	assert.True(t, grant.Access)

	// Double accept conflicts.
	w = ts.do(t, "POST", fmt.Sprintf("/v1/invitations/%s/accept", invitation.ID), "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInvitationCeiling(t *testing.T) {
	ts := newTestServer(t)

	t.Run("admin cannot invite a peer admin", func(t *testing.T) {
		w := ts.do(t, "POST", "/v1/invitations", ts.admin.ID, CreateInvitationRequest{
			Email: "peer@corp.test", AgencyID: "agency-1", Role: roles.AgencyAdmin,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("user cannot invite at all", func(t *testing.T) {
		w := ts.do(t, "POST", "/v1/invitations", ts.user.ID, CreateInvitationRequest{
			Email: "friend@corp.test", AgencyID: "agency-1", Role: roles.AccountUser,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin may invite below admin", func(t *testing.T) {
		w := ts.do(t, "POST", "/v1/invitations", ts.admin.ID, CreateInvitationRequest{
			Email: "guest@corp.test", AgencyID: "agency-1", Role: roles.AccountGuest,
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestRevokeInvitation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/v1/invitations", ts.owner.ID, CreateInvitationRequest{
		Email: "new@corp.test", AgencyID: "agency-1", Role: roles.AccountUser,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invitation invites.Invitation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invitation))

	w = ts.do(t, "DELETE", "/v1/invitations/"+invitation.ID, ts.owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Accept after revoke conflicts.
	w = ts.do(t, "POST", fmt.Sprintf("/v1/invitations/%s/accept", invitation.ID), "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, "DELETE", "/v1/invitations/inv-missing", ts.owner.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
