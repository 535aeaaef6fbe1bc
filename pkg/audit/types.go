package audit

import "time"

// EventType classifies an audit event.
type EventType string

const (
	// EventSessionResolved records a successful principal resolution.
	EventSessionResolved EventType = "session.resolved"

	// EventEnrichmentFailed records a membership enrichment failure
	// that was recovered by returning a partial principal.
	EventEnrichmentFailed EventType = "session.enrichment_failed"

	// EventBreakGlassElevation records an emergency allow-list
	// elevation. These bypass the provider-driven role source and must
	// always be auditable.
	EventBreakGlassElevation EventType = "admin.break_glass_elevation"

	// EventAuthorizationDenied records a denied (or error-defaulted)
	// permission check.
	EventAuthorizationDenied EventType = "authz.denied"

	// EventOwnershipEmergencyGrant records an ownership grant from the
	// unverified emergency identity list.
	EventOwnershipEmergencyGrant EventType = "ownership.emergency_grant"
)

// EventStatus records the outcome of the audited operation.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
	StatusDenied  EventStatus = "denied"
)

// Event is one audit record.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Status    EventStatus            `json:"status"`
	Subject   string                 `json:"subject,omitempty"`
	Username  string                 `json:"username,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
