package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventType represents the type of inbound webhook event
type EventType string

const (
	EventMemberAdded       EventType = "organization.member_added"
	EventMemberRemoved     EventType = "organization.member_removed"
	EventMemberRoleChanged EventType = "organization.member_role_changed"
	EventMembershipChanged EventType = "user.membership_changed"
)

// Event represents an inbound identity provider event
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Org       string    `json:"org,omitempty"`
	Username  string    `json:"username,omitempty"`
}

// orgEvent reports whether the event affects organization ownership
func (e *Event) orgEvent() bool {
	switch e.Type {
	case EventMemberAdded, EventMemberRemoved, EventMemberRoleChanged:
		return true
	}
	return false
}

// ComputeSignature computes the HMAC-SHA256 signature of a payload
func ComputeSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payload against the signature header value.
// Comparison is constant-time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := ComputeSignature(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
