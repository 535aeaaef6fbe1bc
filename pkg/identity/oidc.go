package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/iflastandards/authgate/pkg/principal"
)

// TokenVerifier turns bearer ID tokens into raw sessions. This is the
// single identity-provider binding: any OIDC-compliant provider works,
// and everything past this point deals only in principal.RawSession.
type TokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// OIDCConfig configures token verification.
type OIDCConfig struct {
	IssuerURL       string
	ClientID        string
	SkipIssuerCheck bool
}

// NewTokenVerifier discovers the OIDC provider and prepares an ID-token
// verifier.
func NewTokenVerifier(ctx context.Context, cfg OIDCConfig) (*TokenVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("OIDC issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("OIDC client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:        cfg.ClientID,
		SkipIssuerCheck: cfg.SkipIssuerCheck,
	})

	return &TokenVerifier{verifier: verifier}, nil
}

// sessionClaims are the token claims this core reads. Everything else
// the provider includes is carried opaquely in RawSession.Claims.
type sessionClaims struct {
	Subject           string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Login             string   `json:"login"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
}

// Verify validates a raw bearer token and extracts the session fields.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string) (principal.RawSession, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return principal.RawSession{}, fmt.Errorf("token verification failed: %w", err)
	}

	var claims sessionClaims
	if err := idToken.Claims(&claims); err != nil {
		return principal.RawSession{}, fmt.Errorf("failed to extract token claims: %w", err)
	}

	var all map[string]interface{}
	if err := idToken.Claims(&all); err != nil {
		all = nil
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Login
	}

	return principal.RawSession{
		Subject:  claims.Subject,
		Username: username,
		Email:    claims.Email,
		Roles:    claims.Roles,
		Claims:   all,
	}, nil
}
