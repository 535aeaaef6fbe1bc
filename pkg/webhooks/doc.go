// Package webhooks receives identity provider events and keeps caches fresh.
//
// # Overview
//
// This package exposes an HTTP handler for inbound webhook deliveries from the
// identity provider. Deliveries are authenticated with an HMAC-SHA256 payload
// signature; verified events invalidate the organization ownership cache and
// the per-user membership cache so the next lookup refetches authoritative
// state.
//
// # Webhook Events
//
// organization.member_added, organization.member_removed,
// organization.member_role_changed: invalidate the ownership cache.
//
// user.membership_changed: invalidate the named user's membership cache entry.
//
// Unknown event types are acknowledged with 200 so the provider does not
// retry them.
//
// # Usage Example
//
//	handler := webhooks.NewHandler(secret, ownerCache, membershipClient, logger)
//	router.Handle("/api/v1/webhooks/idp", handler).Methods("POST")
//
// Signature verification (sender side):
//
//	sig := webhooks.ComputeSignature(secret, body)
//	req.Header.Set(webhooks.SignatureHeader, sig)
//
// # Related Packages
//
//   - pkg/ownership: Owner cache invalidation
//   - pkg/identity: Membership cache invalidation
package webhooks
