package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/iflastandards/authgate/pkg/contextkeys"
)

// RequestID assigns a UUID to each request, honoring an inbound X-Request-ID.
// The ID is stored in the request context and echoed in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
