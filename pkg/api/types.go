package api

import (
	"github.com/iflastandards/authgate/pkg/authz"
	"github.com/iflastandards/authgate/pkg/principal"
)

// CheckRequest is the body of POST /api/v1/auth/check. Principal may be
// omitted when the request is authenticated; the resolved principal
// from the session is used instead.
type CheckRequest struct {
	Principal *principal.Principal `json:"principal,omitempty"`
	Resource  authz.Resource       `json:"resource"`
	Actions   []string             `json:"actions"`
}

// LandingResponse is the body of GET /api/v1/auth/landing
type LandingResponse struct {
	URL string `json:"url"`
}

// AccessResponse is the body of GET /api/v1/auth/access/{key}
type AccessResponse struct {
	Resource string `json:"resource"`
	Allowed  bool   `json:"allowed"`
}

// OwnerResponse is the body of GET /api/v1/orgs/owners/{username}
type OwnerResponse struct {
	Username string `json:"username"`
	Owner    bool   `json:"owner"`
}
