// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, result)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Token expired")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CheckRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	username, ok := httputil.ParsePathStringOrError(w, r, "username")
//
// # Middleware
//
//	httputil.LoggingMiddleware(logger)
//	httputil.RecoveryMiddleware(logger)
//	httputil.CORSMiddleware([]string{"https://www.iflastandards.info"})
//
// # Related Packages
//
//   - pkg/middleware: Authentication and rate-limit middleware
package httputil
