// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"wealthtrack/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
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

// Header sets a custom header.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// StatusCode returns the configured status code.
func (b *JSONResponseBuilder) StatusCode() int {
	return b.statusCode
}

// Write sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for key, value := range b.headers {
		w.Header().Set(key, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Common error responses

func ErrorJSON(status int, detail string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Body(ErrorResponse{Detail: detail})
}

func BadRequestError(detail string) *JSONResponseBuilder {
	return ErrorJSON(http.StatusBadRequest, detail)
}

func NotFoundError(detail string) *JSONResponseBuilder {
	return ErrorJSON(http.StatusNotFound, detail)
}

func UnauthorizedError(detail string) *JSONResponseBuilder {
	return ErrorJSON(http.StatusUnauthorized, detail).Header("WWW-Authenticate", "Bearer")
}

func ConflictError(detail string) *JSONResponseBuilder {
	return ErrorJSON(http.StatusConflict, detail)
}

func InternalError() *JSONResponseBuilder {
	return ErrorJSON(http.StatusInternalServerError, "internal server error")
}

func ValidationErrorJSON(fields []FieldError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(ErrorResponse{Detail: "validation failed", Errors: fields})
}

// badRequestError is a request error that is not a field validation
// failure, such as malformed JSON.
type badRequestError struct {
	detail string
}

func (e *badRequestError) Error() string { return e.detail }

func badRequest(detail string) error { return &badRequestError{detail: detail} }

// ErrorFromDomain maps an error returned by a service onto its response.
// Anything unrecognised becomes a generic 500.
func ErrorFromDomain(err error) *JSONResponseBuilder {
	var requestErr *RequestValidationError
	var fieldErr *core.ValidationError
	var badReq *badRequestError
	switch {
	case errors.As(err, &requestErr):
		return ValidationErrorJSON(requestErr.Fields)
	case errors.As(err, &fieldErr):
		return ValidationErrorJSON([]FieldError{{Field: fieldErr.Field, Message: fieldErr.Message}})
	case errors.As(err, &badReq):
		return BadRequestError(badReq.detail)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("record not found")
	case errors.Is(err, core.ErrConflict):
		return ConflictError("already exists")
	case errors.Is(err, core.ErrUnauthorized):
		return UnauthorizedError("could not validate credentials")
	default:
		return InternalError()
	}
}
