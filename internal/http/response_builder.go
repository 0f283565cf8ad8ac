// Package http exposes the tracker as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dolor/internal/core"
	"dolor/internal/records"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. Responses without a body carry no
// Content-Type.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string   `json:"error"`
	IDs   []string `json:"ids,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ErrorFor maps a domain or store error to its response:
//
//	partial delete      502, with the ids not deleted
//	unknown collection  404
//	record not found    404
//	validation          422
//	store unavailable   503
//	malformed request   400
//	anything else       500
func ErrorFor(err error) *JSONResponseBuilder {
	if ids, ok := records.FailedIDs(err); ok {
		return NewJSONResponse().
			Status(http.StatusBadGateway).
			Body(errorBody{Error: "some records could not be deleted", IDs: ids})
	}
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return BadRequestError(bad.Error())
	case errors.Is(err, core.ErrUnknownCollection):
		return NotFoundError(err.Error())
	case errors.Is(err, records.ErrNotFound):
		return NotFoundError("record not found")
	case core.IsValidationError(err):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, records.ErrStoreUnavailable):
		return ErrorResponse(http.StatusServiceUnavailable, "record store unavailable")
	}
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}
