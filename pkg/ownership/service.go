// Package ownership decides whether an external identity owns the
// platform's organization. Ownership checks run through an ordered
// credential chain, a TTL'd in-process owner cache and an authoritative
// membership lookup; a statically configured emergency list is the last
// resort when no credential is available at all.
package ownership

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/observability"
)

// Service answers organization-ownership queries.
type Service struct {
	org       string
	chain     CredentialChain
	client    OrgClient
	cache     *OwnerCache
	emergency []string
	auditLog  audit.Logger
	metrics   *observability.Metrics
	logger    *logrus.Logger
}

// Config assembles a Service.
type Config struct {
	// Org is the organization slug checks are scoped to.
	Org string

	// Chain is the ordered credential fallback chain.
	Chain CredentialChain

	// Client performs the organization API calls.
	Client OrgClient

	// CacheTTL bounds owner-set staleness; zero means DefaultCacheTTL.
	CacheTTL time.Duration

	// Clock is injected for tests; nil means the system clock.
	Clock Clock

	// EmergencyOwners are consulted only when no credential is
	// configured. Matches are unverified and logged as warnings.
	EmergencyOwners []string

	// Audit receives emergency-grant events; nil means no-op.
	Audit audit.Logger

	// Metrics counts cache hits and misses; nil disables counting.
	Metrics *observability.Metrics

	Logger *logrus.Logger
}

// NewService builds the ownership service, wiring the owner cache to
// fetch through the credential chain.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	auditLog := cfg.Audit
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}

	s := &Service{
		org:       cfg.Org,
		chain:     cfg.Chain,
		client:    cfg.Client,
		emergency: cfg.EmergencyOwners,
		auditLog:  auditLog,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
	s.cache = NewOwnerCache(s.fetchOwners, cfg.CacheTTL, cfg.Clock)
	return s
}

// Cache exposes the owner cache for out-of-band consumers (webhook
// handlers invalidate it on membership events, the scheduler refreshes
// it periodically).
func (s *Service) Cache() *OwnerCache {
	return s.cache
}

// IsOwner reports whether username is an owner of the organization. It
// never returns an error to callers: every failure path resolves to
// false with a log entry.
func (s *Service) IsOwner(ctx context.Context, username string) bool {
	if username == "" {
		return false
	}

	token, provider, ok := s.chain.Token(ctx)
	if !ok {
		s.logger.WithField("org", s.org).Warn("no organization credential configured, falling back to emergency owner list")
		return s.emergencyMatch(ctx, username)
	}

	// Cached set first; the cache refreshes itself when stale.
	cached, err := s.cache.IsOwner(ctx, username)
	if err != nil {
		s.logger.WithError(err).WithField("org", s.org).Warn("owner cache refresh failed")
	} else if cached {
		if s.metrics != nil {
			s.metrics.OwnerCacheHitsTotal.Inc()
		}
		return true
	}
	if s.metrics != nil {
		s.metrics.OwnerCacheMissesTotal.Inc()
	}

	// Not in cache: authoritative membership lookup. The cache is
	// advisory, so a miss is not a denial.
	role, err := s.client.MembershipRole(ctx, token, username)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"org":      s.org,
			"username": username,
			"provider": provider,
		}).Debug("membership lookup failed")
		return false
	}

	if role != AdminRole {
		return false
	}

	// A new owner the cache has not seen yet: invalidate rather than
	// patch, so every consumer converges on the same refreshed set.
	s.cache.Invalidate()
	return true
}

func (s *Service) emergencyMatch(ctx context.Context, username string) bool {
	for _, candidate := range s.emergency {
		if strings.EqualFold(candidate, username) {
			s.logger.WithFields(logrus.Fields{
				"org":      s.org,
				"username": username,
			}).Warn("granting ownership from emergency list without provider verification")
			if err := audit.Record(ctx, s.auditLog, audit.EventOwnershipEmergencyGrant,
				audit.StatusSuccess, "", username,
				"ownership granted from emergency list"); err != nil {
				s.logger.WithError(err).Error("failed to audit emergency ownership grant")
			}
			return true
		}
	}
	return false
}

// fetchOwners is the cache's refresh source: the full owner set via
// whatever credential the chain yields.
func (s *Service) fetchOwners(ctx context.Context) ([]string, error) {
	token, _, ok := s.chain.Token(ctx)
	if !ok {
		return nil, errNoCredential
	}
	return s.client.ListOwners(ctx, token)
}

type noCredentialError struct{}

func (noCredentialError) Error() string { return "no organization credential configured" }

var errNoCredential = noCredentialError{}
