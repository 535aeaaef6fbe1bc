package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/authz"
	"github.com/iflastandards/authgate/pkg/contextkeys"
	"github.com/iflastandards/authgate/pkg/principal"
	"github.com/iflastandards/authgate/pkg/routing"
)

type fakeSessionResolver struct {
	principal *principal.Principal
	err       error
	lastInput principal.RawSession
}

func (f *fakeSessionResolver) Resolve(ctx context.Context, session principal.RawSession) (*principal.Principal, error) {
	f.lastInput = session
	if f.err != nil {
		return nil, f.err
	}
	return f.principal, nil
}

type fakeChecker struct {
	result *authz.CheckResult
	lastP  *principal.Principal
}

func (f *fakeChecker) Check(ctx context.Context, p *principal.Principal, resource authz.Resource, actions []string) *authz.CheckResult {
	f.lastP = p
	return f.result
}

type fakeOracle struct {
	owners map[string]bool
}

func (f *fakeOracle) IsOwner(ctx context.Context, username string) bool {
	return f.owners[username]
}

type capturingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (c *capturingAudit) Log(ctx context.Context, event *audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingAudit) Close() error { return nil }

func (c *capturingAudit) byType(t audit.EventType) []*audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*audit.Event
	for _, e := range c.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// principalInjector simulates the auth middleware for handler tests
func principalInjector(p *principal.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := contextkeys.WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.iflastandards.info"
	}
	return NewServer(opts)
}

func TestResolveSession(t *testing.T) {
	resolver := &fakeSessionResolver{
		principal: &principal.Principal{ID: "user|1", Username: "alice"},
	}
	sink := &capturingAudit{}
	s := newTestServer(Options{Resolver: resolver, Audit: sink})

	body := `{"sub":"user|1","login":"alice","roles":["namespace-admin:ISBD"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/resolve", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got principal.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "user|1", got.ID)
	assert.Equal(t, "alice", got.Username)

	assert.Equal(t, "user|1", resolver.lastInput.Subject)
	assert.Equal(t, []string{"namespace-admin:ISBD"}, resolver.lastInput.Roles)

	events := sink.byType(audit.EventSessionResolved)
	require.Len(t, events, 1)
	assert.Equal(t, audit.StatusSuccess, events[0].Status)
}

type failingAudit struct{}

func (failingAudit) Log(ctx context.Context, event *audit.Event) error {
	return errors.New("audit sink unavailable")
}

func (failingAudit) Close() error { return nil }

func TestResolveSessionAuditFailureDoesNotFailRequest(t *testing.T) {
	resolver := &fakeSessionResolver{
		principal: &principal.Principal{ID: "user|1", Username: "alice"},
	}
	s := newTestServer(Options{Resolver: resolver, Audit: failingAudit{}})

	body := `{"sub":"user|1","login":"alice"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/resolve", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolveSessionRejected(t *testing.T) {
	resolver := &fakeSessionResolver{err: errors.New("session has no subject")}
	sink := &capturingAudit{}
	s := newTestServer(Options{Resolver: resolver, Audit: sink})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/resolve", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	events := sink.byType(audit.EventSessionResolved)
	require.Len(t, events, 1)
	assert.Equal(t, audit.StatusFailure, events[0].Status)
}

func TestResolveSessionMalformedBody(t *testing.T) {
	s := newTestServer(Options{Resolver: &fakeSessionResolver{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/resolve", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAccessAllowed(t *testing.T) {
	checker := &fakeChecker{result: &authz.CheckResult{
		Allowed:   true,
		Results:   map[string]bool{"edit": true},
		CheckedAt: time.Now(),
	}}
	sink := &capturingAudit{}
	s := newTestServer(Options{Engine: checker, Audit: sink})

	body := `{
		"principal": {"id":"user|1","username":"alice"},
		"resource": {"kind":"namespace","id":"isbd"},
		"actions": ["edit"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/check", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got authz.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Allowed)
	assert.True(t, got.Results["edit"])

	require.NotNil(t, checker.lastP)
	assert.Equal(t, "user|1", checker.lastP.ID)

	assert.Empty(t, sink.byType(audit.EventAuthorizationDenied))
}

func TestCheckAccessDeniedIsAudited(t *testing.T) {
	checker := &fakeChecker{result: &authz.CheckResult{
		Allowed:   false,
		Results:   map[string]bool{"edit": false},
		CheckedAt: time.Now(),
	}}
	sink := &capturingAudit{}
	s := newTestServer(Options{Engine: checker, Audit: sink})

	body := `{
		"principal": {"id":"user|2","username":"bob"},
		"resource": {"kind":"namespace","id":"isbd"},
		"actions": ["edit"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/check", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	events := sink.byType(audit.EventAuthorizationDenied)
	require.Len(t, events, 1)
	assert.Equal(t, audit.StatusDenied, events[0].Status)
	assert.Equal(t, "user|2", events[0].Subject)
}

func TestCheckAccessUsesContextPrincipal(t *testing.T) {
	checker := &fakeChecker{result: &authz.CheckResult{Allowed: true, Results: map[string]bool{"view": true}}}
	s := newTestServer(Options{Engine: checker})
	s.Use(principalInjector(&principal.Principal{ID: "user|3", Username: "carol"}))

	body := `{"resource": {"kind":"site","id":"portal"}, "actions": ["view"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/check", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, checker.lastP)
	assert.Equal(t, "user|3", checker.lastP.ID)
}

func TestLandingPage(t *testing.T) {
	p := &principal.Principal{
		ID:       "user|1",
		Username: "alice",
		Attributes: principal.Attributes{
			Namespaces: map[string]string{"isbd": "editor"},
		},
	}
	s := newTestServer(Options{Routes: routing.NewResolver(nil)})
	s.Use(principalInjector(p))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/landing", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got LandingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://www.iflastandards.info/dashboard/isbd", got.URL)
}

func TestLandingPageRequiresAuth(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/landing", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResourceAccess(t *testing.T) {
	p := &principal.Principal{
		ID: "user|1",
		Attributes: principal.Attributes{
			Namespaces: map[string]string{"isbd": "editor"},
		},
	}
	s := newTestServer(Options{})
	s.Use(principalInjector(p))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/access/isbd", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "isbd", got.Resource)
	assert.True(t, got.Allowed)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/access/unimarc", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Allowed)
}

func TestResourceAccessRequiresAuth(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/access/isbd", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnerStatus(t *testing.T) {
	oracle := &fakeOracle{owners: map[string]bool{"alice": true}}
	s := newTestServer(Options{Owners: oracle})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/owners/alice", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got OwnerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.Owner)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orgs/owners/mallory", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Owner)
}

func TestOwnerStatusUnconfigured(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/owners/alice", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestWebhookRouteWired(t *testing.T) {
	var hit bool
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	})
	s := newTestServer(Options{Webhook: webhook})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/idp", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.True(t, hit)
}

func TestWebhookRouteAbsentWhenUnconfigured(t *testing.T) {
	s := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/idp", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
