// Package api provides the HTTP handlers of the region service and the
// standardized error envelope they share.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/regions/internal/geocode"
	"github.com/onnwee/regions/internal/middleware"
	"github.com/onnwee/regions/internal/region"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeRegionLocked indicates a mutation on a locked region.
	ErrCodeRegionLocked = "region_locked"

	// ErrCodeDegenerateGeometry indicates an edit that would leave a shape with too few vertices.
	ErrCodeDegenerateGeometry = "degenerate_geometry"

	// ErrCodeNotImplemented indicates a per-region endpoint that has no
	// stored-region lookup behind it.
	ErrCodeNotImplemented = "not_implemented"

	// ErrCodeUpstream indicates the geocoding provider failed.
	ErrCodeUpstream = "upstream_error"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
// It writes the appropriate HTTP status code and returns a JSON error body.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code will be automatically logged by the logging middleware
// for all 4xx and 5xx responses if you call SetErrorCode on the context
// and pass the updated context to WriteError.
//
// Example:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Region not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// writeCodedError records code on the request context and writes the envelope.
func writeCodedError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}

// writeEngineError maps the region and geocode error taxonomy onto HTTP.
// Anything unrecognized is logged and reported as an internal error.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *region.ValidationError
		notFoundErr   *region.NotFoundError
		lockedErr     *region.LockedRegionError
		degenerateErr *region.GeometryDegenerateError
		upstreamErr   *geocode.UpstreamError
		geoMissErr    *geocode.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, validationErr.Error())
	case errors.As(err, &notFoundErr):
		writeCodedError(w, r, http.StatusNotFound, ErrCodeNotFound, notFoundErr.Error())
	case errors.As(err, &lockedErr):
		writeCodedError(w, r, http.StatusLocked, ErrCodeRegionLocked, lockedErr.Error())
	case errors.As(err, &degenerateErr):
		writeCodedError(w, r, http.StatusUnprocessableEntity, ErrCodeDegenerateGeometry, degenerateErr.Error())
	case errors.As(err, &geoMissErr):
		writeCodedError(w, r, http.StatusNotFound, ErrCodeNotFound, geoMissErr.Error())
	case errors.As(err, &upstreamErr):
		slog.WarnContext(r.Context(), "geocoding provider failed", "error", err)
		writeCodedError(w, r, http.StatusBadGateway, ErrCodeUpstream, "Geocoding provider request failed")
	case errors.Is(err, region.ErrValidation):
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err)
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
// This is a convenience function to map error codes to HTTP status codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeRegionLocked:
		return http.StatusLocked
	case ErrCodeDegenerateGeometry:
		return http.StatusUnprocessableEntity
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	case ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
