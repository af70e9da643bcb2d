// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetbee/internal/analysis"
	"budgetbee/internal/log"
	"budgetbee/internal/services"
	"budgetbee/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Error sets the body to {"error": msg}.
func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	b.payload = errorBody{Error: msg}
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// Messages returned to clients for failures that carry no safe detail.
const (
	msgUnauthorized  = "Unauthorized"
	msgAIUnavailable = "AI service unavailable"
	msgAnalyzeFailed = "Failed to analyze spending"
	msgNotFound      = "Not found"
	msgConflict      = "A budget for this category already exists"
	msgInternal      = "Internal server error"
	msgRateLimited   = "Rate limit exceeded. Please try again later."
)

// statusFor maps an error to its response status and client message.
// fallback is the message used for unclassified errors.
func statusFor(err error, fallback string) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error(), log.ErrorTypeValidation
	case errors.Is(err, analysis.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized, log.ErrorTypeAuth
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, msgNotFound, log.ErrorTypeNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, msgConflict, log.ErrorTypeConflict
	case errors.Is(err, analysis.ErrUpstreamUnavailable):
		return http.StatusInternalServerError, msgAIUnavailable, log.ErrorTypeUpstream
	default:
		return http.StatusInternalServerError, fallback, log.ErrorTypeInternal
	}
}

// writeError logs the failure on the request logger and writes the mapped
// error response.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg, errType := statusFor(err, fallback)
	logger := log.FromContext(r.Context())
	args := []any{log.FieldError, err, log.FieldErrorType, errType, log.FieldPath, r.URL.Path}
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", args...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", args...)
	}
	NewJSONResponse().Status(status).Error(msg).Write(w)
}
