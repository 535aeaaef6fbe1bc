package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/httputil"
	"github.com/iflastandards/authgate/pkg/middleware"
	"github.com/iflastandards/authgate/pkg/principal"
)

// resolveSession handles POST /api/v1/session/resolve
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) {
	var session principal.RawSession
	if !httputil.ParseJSONOrError(w, r, &session) {
		return
	}

	p, err := s.resolver.Resolve(r.Context(), session)
	if err != nil {
		s.logger.WithError(err).WithField("subject", session.Subject).Warn("Session resolution rejected")
		if auditErr := audit.Record(r.Context(), s.audit, audit.EventSessionResolved, audit.StatusFailure,
			session.Subject, session.Username, err.Error()); auditErr != nil {
			s.logger.WithError(auditErr).Warn("failed to audit session resolution failure")
		}
		if s.metrics != nil {
			s.metrics.SessionResolutionsTotal.WithLabelValues("failure").Inc()
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if auditErr := audit.Record(r.Context(), s.audit, audit.EventSessionResolved, audit.StatusSuccess,
		p.ID, p.Username, "session resolved"); auditErr != nil {
		s.logger.WithError(auditErr).Warn("failed to audit session resolution")
	}
	if s.metrics != nil {
		s.metrics.SessionResolutionsTotal.WithLabelValues("success").Inc()
	}

	httputil.WriteSuccess(w, p)
}

// checkAccess handles POST /api/v1/auth/check
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	p := req.Principal
	if p == nil {
		if ctxPrincipal, ok := middleware.PrincipalFromRequest(r); ok {
			p = ctxPrincipal
		}
	}

	result := s.engine.Check(r.Context(), p, req.Resource, req.Actions)

	if s.metrics != nil {
		s.metrics.AuthzChecksTotal.WithLabelValues(string(req.Resource.Kind), strconv.FormatBool(result.Allowed)).Inc()
	}

	if !result.Allowed {
		subject, username := "", ""
		if p != nil {
			subject = p.ID
			username = p.Username
		}
		if auditErr := audit.Record(r.Context(), s.audit, audit.EventAuthorizationDenied, audit.StatusDenied,
			subject, username,
			fmt.Sprintf("denied %s on %s/%s", strings.Join(req.Actions, ","), req.Resource.Kind, req.Resource.ID)); auditErr != nil {
			s.logger.WithError(auditErr).Warn("failed to audit authorization denial")
		}
	}

	httputil.WriteSuccess(w, result)
}

// landingPage handles GET /api/v1/auth/landing
func (s *Server) landingPage(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	url := s.routes.LandingPage(p, s.baseURL)
	httputil.WriteSuccess(w, LandingResponse{URL: url})
}

// resourceAccess handles GET /api/v1/auth/access/{key}
func (s *Server) resourceAccess(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	p, authed := middleware.PrincipalFromRequest(r)
	if !authed {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	httputil.WriteSuccess(w, AccessResponse{
		Resource: key,
		Allowed:  s.routes.HasAccess(p, key),
	})
}

// ownerStatus handles GET /api/v1/orgs/owners/{username}
func (s *Server) ownerStatus(w http.ResponseWriter, r *http.Request) {
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}

	if s.owners == nil {
		httputil.WriteServiceUnavailable(w, "ownership oracle not configured")
		return
	}

	httputil.WriteSuccess(w, OwnerResponse{
		Username: username,
		Owner:    s.owners.IsOwner(r.Context(), username),
	})
}
