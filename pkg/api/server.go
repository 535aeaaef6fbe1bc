package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/authz"
	"github.com/iflastandards/authgate/pkg/observability"
	"github.com/iflastandards/authgate/pkg/principal"
	"github.com/iflastandards/authgate/pkg/routing"
)

// SessionResolver turns raw session claims into a resolved principal
type SessionResolver interface {
	Resolve(ctx context.Context, session principal.RawSession) (*principal.Principal, error)
}

// AccessChecker runs fail-closed permission checks
type AccessChecker interface {
	Check(ctx context.Context, p *principal.Principal, resource authz.Resource, actions []string) *authz.CheckResult
}

// OwnershipOracle answers organization ownership queries
type OwnershipOracle interface {
	IsOwner(ctx context.Context, username string) bool
}

// Server represents our API server
type Server struct {
	router   *mux.Router
	resolver SessionResolver
	engine   AccessChecker
	routes   *routing.Resolver
	owners   OwnershipOracle
	webhook  http.Handler
	audit    audit.Logger
	logger   *logrus.Logger
	metrics  *observability.Metrics
	baseURL  string
}

// Options bundles the server dependencies. Webhook, Audit and Metrics
// are optional.
type Options struct {
	Resolver SessionResolver
	Engine   AccessChecker
	Routes   *routing.Resolver
	Owners   OwnershipOracle
	Webhook  http.Handler
	Audit    audit.Logger
	Logger   *logrus.Logger
	Metrics  *observability.Metrics
	BaseURL  string
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopLogger{}
	}
	if opts.Routes == nil {
		opts.Routes = routing.NewResolver(nil)
	}

	s := &Server{
		router:   mux.NewRouter(),
		resolver: opts.Resolver,
		engine:   opts.Engine,
		routes:   opts.Routes,
		owners:   opts.Owners,
		webhook:  opts.Webhook,
		audit:    opts.Audit,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		baseURL:  opts.BaseURL,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Session routes
	api.HandleFunc("/session/resolve", s.resolveSession).Methods("POST")

	// Authorization routes
	api.HandleFunc("/auth/check", s.checkAccess).Methods("POST")
	api.HandleFunc("/auth/landing", s.landingPage).Methods("GET")
	api.HandleFunc("/auth/access/{key}", s.resourceAccess).Methods("GET")

	// Organization routes
	api.HandleFunc("/orgs/owners/{username}", s.ownerStatus).Methods("GET")

	// Webhook routes
	if s.webhook != nil {
		api.Handle("/webhooks/idp", s.webhook).Methods("POST")
	}
}

// Use attaches a middleware to the router
func (s *Server) Use(mw func(http.Handler) http.Handler) {
	s.router.Use(mux.MiddlewareFunc(mw))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// healthz handles GET /healthz
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
