// Package authz evaluates (principal, resource, actions) triples
// against a remote policy decision service. The engine's one hard
// invariant is fail-closed: any error talking to the service yields a
// denial for every requested action, indistinguishable from a genuine
// policy denial.
package authz

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iflastandards/authgate/pkg/observability"
	"github.com/iflastandards/authgate/pkg/principal"
)

// Engine wraps a DecisionClient with result normalization and the
// fail-closed default.
type Engine struct {
	client  DecisionClient
	logger  *logrus.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewEngine creates an engine over the given client. A nil client
// denies everything; a nil logger falls back to the logrus standard
// logger.
func NewEngine(client DecisionClient, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{client: client, logger: logger, now: time.Now}
}

// SetMetrics wires the metrics sink. Fail-closed denials are counted
// when one is set.
func (e *Engine) SetMetrics(metrics *observability.Metrics) {
	e.metrics = metrics
}

// Check evaluates the requested actions for the principal against the
// resource. It never returns an error: malformed input and decision
// service failures both resolve to a denial. Results are computed fresh
// per call and are never cached.
func (e *Engine) Check(ctx context.Context, p *principal.Principal, resource Resource, actions []string) *CheckResult {
	if len(actions) == 0 || !resource.Kind.Valid() || p == nil {
		return deniedResult(actions, e.now())
	}

	// No client configured means no decision service to consult; every
	// check is a fail-closed denial, not a panic.
	if e.client == nil {
		e.logger.WithFields(logrus.Fields{
			"principal":     p.ID,
			"resource_kind": resource.Kind,
			"resource_id":   resource.ID,
		}).Warn("no decision client configured, denying all actions")
		if e.metrics != nil {
			e.metrics.AuthzFailClosedTotal.Inc()
		}
		return deniedResult(actions, e.now())
	}

	answers, err := e.client.Decide(ctx, p, resource, actions)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"principal":     p.ID,
			"resource_kind": resource.Kind,
			"resource_id":   resource.ID,
		}).WithError(err).Warn("decision service check failed, denying all actions")
		if e.metrics != nil {
			e.metrics.AuthzFailClosedTotal.Inc()
		}
		return deniedResult(actions, e.now())
	}

	results := make(map[string]bool, len(actions))
	allowed := false
	for _, action := range actions {
		// Actions the service did not answer for stay denied.
		granted := answers[action]
		results[action] = granted
		if granted {
			allowed = true
		}
	}

	return &CheckResult{Allowed: allowed, Results: results, CheckedAt: e.now()}
}

// CheckNamespace checks actions against a namespace resource.
func (e *Engine) CheckNamespace(ctx context.Context, p *principal.Principal, namespaceID string, attrs map[string]string, actions []string) *CheckResult {
	return e.Check(ctx, p, Resource{Kind: ResourceNamespace, ID: namespaceID, Attributes: attrs}, actions)
}

// CheckSite checks actions against a site resource.
func (e *Engine) CheckSite(ctx context.Context, p *principal.Principal, siteID string, attrs map[string]string, actions []string) *CheckResult {
	return e.Check(ctx, p, Resource{Kind: ResourceSite, ID: siteID, Attributes: attrs}, actions)
}

// CheckUserAdmin checks actions against the user-administration surface.
func (e *Engine) CheckUserAdmin(ctx context.Context, p *principal.Principal, targetID string, actions []string) *CheckResult {
	return e.Check(ctx, p, Resource{Kind: ResourceUserAdmin, ID: targetID}, actions)
}

// CheckTranslation checks actions against a translation resource.
func (e *Engine) CheckTranslation(ctx context.Context, p *principal.Principal, translationID string, attrs map[string]string, actions []string) *CheckResult {
	return e.Check(ctx, p, Resource{Kind: ResourceTranslation, ID: translationID, Attributes: attrs}, actions)
}
