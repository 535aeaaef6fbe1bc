package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iflastandards/authgate/pkg/contextkeys"
	"github.com/iflastandards/authgate/pkg/httputil"
	"github.com/iflastandards/authgate/pkg/principal"
)

// SessionVerifier validates a bearer token and extracts the raw session claims
type SessionVerifier interface {
	Verify(ctx context.Context, rawToken string) (principal.RawSession, error)
}

// PrincipalResolver turns raw session claims into a resolved principal
type PrincipalResolver interface {
	Resolve(ctx context.Context, session principal.RawSession) (*principal.Principal, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier SessionVerifier
	resolver PrincipalResolver
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier SessionVerifier, resolver PrincipalResolver, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		resolver: resolver,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header")
			return
		}

		session, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}

		p, err := m.resolver.Resolve(r.Context(), session)
		if err != nil {
			httputil.WriteUnauthorized(w, "session could not be resolved")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext retrieves the resolved principal from the request context
func PrincipalFromContext(ctx context.Context) (*principal.Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*principal.Principal)
	return p, ok
}

// PrincipalFromRequest retrieves the resolved principal from the request
func PrincipalFromRequest(r *http.Request) (*principal.Principal, bool) {
	return PrincipalFromContext(r.Context())
}
