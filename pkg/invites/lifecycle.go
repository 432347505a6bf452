package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/roles"
)

// Lifecycle drives invitation state transitions and their side effects:
// account creation, role assignment, and grant writes on acceptance.
type Lifecycle struct {
	store     Store
	directory accounts.Directory
	grants    grants.Store
	auditSink audit.Sink
	logger    *observability.Logger
	metrics   *observability.Metrics
	ttl       time.Duration
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithTTL overrides the default pending-invitation lifetime.
func WithTTL(ttl time.Duration) LifecycleOption {
	return func(l *Lifecycle) { l.ttl = ttl }
}

// NewLifecycle creates the invitation lifecycle service.
func NewLifecycle(store Store, directory accounts.Directory, grantStore grants.Store, auditSink audit.Sink, logger *observability.Logger, metrics *observability.Metrics, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		store:     store,
		directory: directory,
		grants:    grantStore,
		auditSink: auditSink,
		logger:    logger,
		metrics:   metrics,
		ttl:       7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create issues a pending invitation for (email, agencyID) with the given
// role. If a pending invitation already exists for that pair it is returned
// unchanged and no audit event is recorded.
func (l *Lifecycle) Create(ctx context.Context, email, agencyID string, role roles.Role, invitedBy string) (*Invitation, error) {
	if !roles.Valid(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC()
	invitation, created, err := l.store.CreateOrGetPending(ctx, &Invitation{
		Email:     email,
		AgencyID:  agencyID,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		l.logger.WithField("invitation_id", invitation.ID).
			Debugf("pending invitation for %s already exists", email)
		return invitation, nil
	}

	l.metrics.InvitationsTotal.WithLabelValues("created").Inc()
	l.appendAudit(ctx, &audit.Event{
		Type:         audit.EventInviteCreated,
		Status:       audit.StatusSuccess,
		ActorID:      invitedBy,
		AgencyID:     agencyID,
		ResourceType: audit.ResourceInvitation,
		ResourceID:   invitation.ID,
		Message:      fmt.Sprintf("invited %s as %s", email, role),
		Metadata:     map[string]string{"email": email, "role": string(role)},
	})
	return invitation, nil
}

// Accept consumes a pending invitation. The pending to accepted transition is
// a compare-and-swap, so of two concurrent accepts exactly one proceeds; the
// loser gets ErrInvalidTransition. The winner then applies the side effect
// for the invited role's scope kind:
//
//   - Agency-scope roles set the invitee's role and home agency, creating the
//     account if the email is unknown.
//   - Sub-account-scope roles write an access grant for the invitation's
//     agency and leave the invitee's role and home agency untouched.
//
// Side effects are idempotent upserts, so a retry after a partial failure
// converges rather than double-applying.
func (l *Lifecycle) Accept(ctx context.Context, id string) (*Invitation, error) {
	invitation, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if invitation.Status == StatusPending && now.After(invitation.ExpiresAt) {
		return nil, ErrInvalidTransition
	}

	if err := l.store.MarkAccepted(ctx, id, now); err != nil {
		return nil, err
	}
	invitation.Status = StatusAccepted
	invitation.AcceptedAt = &now

	if err := l.applyAcceptance(ctx, invitation); err != nil {
		l.logger.WithError(err).WithField("invitation_id", id).
			Error("invitation accepted but side effect failed")
		return nil, err
	}

	l.metrics.InvitationsTotal.WithLabelValues("accepted").Inc()
	l.appendAudit(ctx, &audit.Event{
		Type:         audit.EventInviteAccepted,
		Status:       audit.StatusSuccess,
		ActorEmail:   invitation.Email,
		AgencyID:     invitation.AgencyID,
		ResourceType: audit.ResourceInvitation,
		ResourceID:   invitation.ID,
		Message:      fmt.Sprintf("%s joined as %s", invitation.Email, invitation.Role),
		Metadata:     map[string]string{"role": string(invitation.Role)},
	})
	return invitation, nil
}

func (l *Lifecycle) applyAcceptance(ctx context.Context, invitation *Invitation) error {
	switch roles.Scope(invitation.Role) {
	case roles.ScopeAgency:
		account, err := l.directory.GetByEmail(ctx, invitation.Email)
		if err == accounts.ErrNotFound {
			return l.directory.Create(ctx, &accounts.Account{
				Email:        invitation.Email,
				Role:         invitation.Role,
				HomeAgencyID: invitation.AgencyID,
			})
		}
		if err != nil {
			return err
		}
		return l.directory.SetRole(ctx, account.ID, invitation.Role, invitation.AgencyID)

	case roles.ScopeSubAccount:
		// The invitee's existing role and home agency are left alone: a
		// member of another agency gains visibility into this one's
		// sub-account, nothing more.
		if _, err := l.directory.GetByEmail(ctx, invitation.Email); err == accounts.ErrNotFound {
			if err := l.directory.Create(ctx, &accounts.Account{
				Email:        invitation.Email,
				Role:         invitation.Role,
				HomeAgencyID: invitation.AgencyID,
			}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		_, err := l.grants.Set(ctx, invitation.Email, invitation.AgencyID, true)
		return err

	default:
		return fmt.Errorf("invitation %s has unknown role %q", invitation.ID, invitation.Role)
	}
}

// Revoke withdraws a pending invitation.
func (l *Lifecycle) Revoke(ctx context.Context, id, revokedBy string) (*Invitation, error) {
	now := time.Now().UTC()
	if err := l.store.MarkRevoked(ctx, id, now); err != nil {
		return nil, err
	}
	invitation, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	l.metrics.InvitationsTotal.WithLabelValues("revoked").Inc()
	l.appendAudit(ctx, &audit.Event{
		Type:         audit.EventInviteRevoked,
		Status:       audit.StatusSuccess,
		ActorID:      revokedBy,
		AgencyID:     invitation.AgencyID,
		ResourceType: audit.ResourceInvitation,
		ResourceID:   invitation.ID,
		Message:      fmt.Sprintf("invitation for %s revoked", invitation.Email),
	})
	return invitation, nil
}

// ExpireStale revokes every pending invitation past its expiry and returns
// how many were expired. Races with concurrent accepts are resolved by the
// store's compare-and-swap: an invitation accepted between the list and the
// transition simply stays accepted.
func (l *Lifecycle) ExpireStale(ctx context.Context, asOf time.Time) (int, error) {
	stale, err := l.store.ListExpiredPending(ctx, asOf)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, invitation := range stale {
		if err := l.store.MarkRevoked(ctx, invitation.ID, asOf); err != nil {
			if err == ErrInvalidTransition {
				continue
			}
			return expired, err
		}
		expired++
		l.metrics.InvitationsTotal.WithLabelValues("expired").Inc()
		l.appendAudit(ctx, &audit.Event{
			Type:         audit.EventInviteExpired,
			Status:       audit.StatusSuccess,
			AgencyID:     invitation.AgencyID,
			ResourceType: audit.ResourceInvitation,
			ResourceID:   invitation.ID,
			Message:      fmt.Sprintf("invitation for %s expired", invitation.Email),
		})
	}
	return expired, nil
}

func (l *Lifecycle) appendAudit(ctx context.Context, event *audit.Event) {
	if err := l.auditSink.Append(ctx, event); err != nil {
		l.metrics.AuditAppendFailuresTotal.Inc()
		l.logger.WithError(err).WithField("event_type", string(event.Type)).
			Warn("failed to append audit event")
		return
	}
	l.metrics.AuditEventsTotal.WithLabelValues(string(event.Type), string(event.Status)).Inc()
}
