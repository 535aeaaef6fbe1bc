// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including bearer token
// authentication, request ID propagation, and rate limiting (in-memory and
// Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: Bearer token authentication and principal resolution
//
//	authn := middleware.NewAuthMiddleware(verifier, resolver, false)
//	router.Use(authn.Handler)
//	// Verifies the token, resolves the principal, adds it to the request context
//
// RequestID: UUID request identifiers
//
//	router.Use(middleware.RequestID)
//
// RateLimitMiddleware: In-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-Principal: 1000 req/min, 50 burst
//
// Redis errors fail open so a rate-limit outage never blocks authentication.
//
// # Related Packages
//
//   - pkg/identity: Token verification and principal resolution
//   - pkg/contextkeys: Context key definitions
package middleware
