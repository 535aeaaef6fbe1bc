package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/iflastandards/authgate/pkg/httputil"
)

// SignatureHeader carries the HMAC-SHA256 payload signature
const SignatureHeader = "X-Hub-Signature-256"

// OwnerInvalidator marks the cached organization owner set stale
type OwnerInvalidator interface {
	Invalidate()
}

// MembershipInvalidator drops cached memberships for a username
type MembershipInvalidator interface {
	Invalidate(username string)
}

// Handler receives identity provider events and invalidates the
// affected caches. Unknown event types are acknowledged and ignored so
// the provider does not retry them.
type Handler struct {
	secret      string
	owners      OwnerInvalidator
	memberships MembershipInvalidator
	logger      *logrus.Logger
}

// NewHandler creates a webhook handler. owners and memberships may be
// nil when the corresponding cache is not wired.
func NewHandler(secret string, owners OwnerInvalidator, memberships MembershipInvalidator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		secret:      secret,
		owners:      owners,
		memberships: memberships,
		logger:      logger,
	}
}

// ServeHTTP handles POST deliveries from the identity provider
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Warn("Webhook received but no secret is configured")
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "webhooks not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.logger.WithField("remote", r.RemoteAddr).Warn("Webhook signature verification failed")
		httputil.WriteUnauthorized(w, "invalid signature")
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteBadRequest(w, "invalid event payload")
		return
	}

	h.process(&event)

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "id": event.ID})
}

func (h *Handler) process(event *Event) {
	log := h.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"username":   event.Username,
	})

	if event.orgEvent() && h.owners != nil {
		h.owners.Invalidate()
		log.Info("Ownership cache invalidated")
	}

	if event.Username != "" && h.memberships != nil {
		h.memberships.Invalidate(event.Username)
		log.Info("Membership cache invalidated")
	}

	if !event.orgEvent() && event.Type != EventMembershipChanged {
		log.Debug("Ignoring unknown event type")
	}
}
