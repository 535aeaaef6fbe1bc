// Package identity turns raw identity-provider sessions into
// normalized principals. Resolution is fail-open on enrichment: a
// provider outage degrades the principal instead of blocking
// authentication. Authorization decisions downstream remain fail-closed.
package identity

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/observability"
	"github.com/iflastandards/authgate/pkg/principal"
)

// OwnerChecker answers whether a username owns the platform's
// organization. The ownership service implements it.
type OwnerChecker interface {
	IsOwner(ctx context.Context, username string) bool
}

// Resolver builds principals from raw sessions.
type Resolver struct {
	membership MembershipClient
	store      RoleStore
	allowList  *AllowList
	owners     OwnerChecker
	auditLog   audit.Logger
	metrics    *observability.Metrics
	logger     *logrus.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithMembershipClient wires the enrichment source.
func WithMembershipClient(client MembershipClient) ResolverOption {
	return func(r *Resolver) { r.membership = client }
}

// WithRoleStore wires the static role-assignment source.
func WithRoleStore(store RoleStore) ResolverOption {
	return func(r *Resolver) { r.store = store }
}

// WithAllowList wires the break-glass allow-list.
func WithAllowList(list *AllowList) ResolverOption {
	return func(r *Resolver) { r.allowList = list }
}

// WithAuditLogger wires the audit sink.
func WithAuditLogger(logger audit.Logger) ResolverOption {
	return func(r *Resolver) { r.auditLog = logger }
}

// WithMetrics wires the metrics sink.
func WithMetrics(metrics *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = metrics }
}

// WithOwnerChecker wires the organization ownership oracle.
func WithOwnerChecker(owners OwnerChecker) ResolverOption {
	return func(r *Resolver) { r.owners = owners }
}

// NewResolver creates a resolver. All collaborators are optional; an
// unconfigured resolver still normalizes the session claims it is
// given.
func NewResolver(logger *logrus.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Resolver{
		logger:   logger,
		auditLog: audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds a Principal from the session. The subject id is the
// only required field. Declared role claims are taken verbatim (legacy
// compound strings are translated to structured attributes), static
// assignments and provider memberships are merged in, and the
// break-glass allow-list is applied last, only to identities that ended
// up with zero roles.
func (r *Resolver) Resolve(ctx context.Context, session principal.RawSession) (*principal.Principal, error) {
	if session.Subject == "" {
		return nil, fmt.Errorf("session has no subject")
	}

	p := &principal.Principal{
		ID:       session.Subject,
		Username: session.Username,
		Email:    session.Email,
	}

	// Declared claims first; they are the provider's word.
	principal.ApplyLegacyRoles(p, session.Roles)

	// Static assignments persisted by the platform.
	if r.store != nil {
		roles, err := r.store.RolesFor(ctx, session.Subject)
		if err != nil {
			r.logger.WithError(err).WithField("subject", session.Subject).
				Warn("role store lookup failed, continuing without static assignments")
		} else {
			principal.ApplyLegacyRoles(p, roles)
		}
	}

	// Provider memberships. A fetch failure must never block
	// authentication: log, audit, and return what we have.
	if r.membership != nil && session.Username != "" {
		memberships, err := r.membership.Memberships(ctx, session.Username)
		if err != nil {
			r.logger.WithError(err).WithField("username", session.Username).
				Warn("membership enrichment failed, returning partial principal")
			if r.metrics != nil {
				r.metrics.EnrichmentFailuresTotal.Inc()
			}
			if auditErr := audit.Record(ctx, r.auditLog, audit.EventEnrichmentFailed,
				audit.StatusFailure, p.ID, p.Username, err.Error()); auditErr != nil {
				r.logger.WithError(auditErr).Warn("failed to audit enrichment failure")
			}
		} else {
			p.Attributes.ReviewGroups = mergeMemberships(p.Attributes.ReviewGroups, memberships.ReviewGroups)
			p.Attributes.Teams = mergeMemberships(p.Attributes.Teams, memberships.Teams)
			p.Attributes.Translations = mergeMemberships(p.Attributes.Translations, memberships.Translations)
		}
	}

	// Owner designation from the ownership oracle. The oracle resolves
	// false on every failure path, so this can only add access.
	if r.owners != nil && session.Username != "" && r.owners.IsOwner(ctx, session.Username) {
		p.AddRole(principal.RoleOrgOwner)
	}

	r.applyBreakGlass(ctx, p)

	return p, nil
}

// applyBreakGlass grants the elevated role to allow-listed identities
// that hold no other role. It never overrides an existing assignment:
// an identity the provider restricted stays restricted.
func (r *Resolver) applyBreakGlass(ctx context.Context, p *principal.Principal) {
	if r.allowList == nil || len(p.Roles) > 0 {
		return
	}
	if !r.allowList.Matches(p.Username, p.Email) {
		return
	}

	p.AddRole(principal.RoleSystemAdmin)

	if r.metrics != nil {
		r.metrics.BreakGlassElevationsTotal.Inc()
	}

	r.logger.WithFields(logrus.Fields{
		"subject":  p.ID,
		"username": p.Username,
	}).Warn("break-glass elevation: identity matched admin allow-list with no assigned roles")

	if err := audit.Record(ctx, r.auditLog, audit.EventBreakGlassElevation,
		audit.StatusSuccess, p.ID, p.Username,
		"elevated to system-admin via emergency allow-list"); err != nil {
		r.logger.WithError(err).Error("failed to audit break-glass elevation")
	}
}

// mergeMemberships appends entries not already present by id.
func mergeMemberships(existing, fetched []principal.GroupMembership) []principal.GroupMembership {
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.ID] = struct{}{}
	}
	for _, m := range fetched {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		existing = append(existing, m)
		seen[m.ID] = struct{}{}
	}
	return existing
}
