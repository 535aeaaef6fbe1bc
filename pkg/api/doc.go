// Package api implements the HTTP API for session resolution and authorization.
//
// # Overview
//
// The server exposes the authorization surface consumed by the portal and the
// documentation sites: resolving identity provider sessions into principals,
// running fail-closed permission checks, computing post-login landing pages,
// answering resource access and organization ownership queries, and receiving
// identity provider webhooks.
//
// # Routes
//
//	POST /api/v1/session/resolve        resolve raw session claims into a principal
//	POST /api/v1/auth/check             fail-closed permission check
//	GET  /api/v1/auth/landing           landing page for the authenticated principal
//	GET  /api/v1/auth/access/{key}      coarse resource access for the principal
//	GET  /api/v1/orgs/owners/{username} organization ownership status
//	POST /api/v1/webhooks/idp           identity provider event deliveries
//	GET  /healthz                       liveness
//
// # Usage Example
//
//	server := api.NewServer(api.Options{
//		Resolver: resolver,
//		Engine:   engine,
//		Routes:   routingResolver,
//		Owners:   ownershipService,
//		Audit:    auditLogger,
//		Logger:   logger,
//		BaseURL:  "https://www.iflastandards.info",
//	})
//	server.Use(middleware.RequestID)
//	http.ListenAndServe(":8080", server)
//
// # Related Packages
//
//   - pkg/identity: Session resolution
//   - pkg/authz: Permission checks
//   - pkg/routing: Landing page computation
//   - pkg/ownership: Ownership oracle
package api
