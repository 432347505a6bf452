// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// path parameter parsing, and the middleware chain used by the API server.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, resource)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteNotFoundError(w, "no such invitation")
//	httputil.WriteForbidden(w, "cannot assign a role at or above your own")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req SetGrantRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(handler,
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MetricsMiddleware(metrics),
//		httputil.RecoveryMiddleware(logger),
//	)
//
// # Related Packages
//
//   - pkg/api: HTTP handlers built on these helpers
//   - pkg/observability: Logger and metrics used by the middleware
package httputil
