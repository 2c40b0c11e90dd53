// Package http exposes the entry service as a JSON API with HTMX triggers.
//
// This file implements the Builder Pattern for constructing responses.
// It provides a fluent API for building HX-Trigger headers and consistent
// JSON bodies.

package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Trigger names sent in HX-Trigger.
const (
	TriggerCategoriesReordered = "categories:reordered"
	TriggerExpenseRecorded     = "expense:recorded"
	TriggerExpenseDeleted      = "expense:deleted"
	TriggerExpensesCleared     = "expenses:cleared"
	TriggerFormReset           = "form:reset"
	TriggerClearConfirm        = "clear:confirm"
)

// HTMXResponseBuilder provides a fluent API for building responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerCategoriesReordered reports the refresh mode of the new ordering.
func (b *HTMXResponseBuilder) TriggerCategoriesReordered(mode string) *HTMXResponseBuilder {
	return b.Trigger(TriggerCategoriesReordered, map[string]string{"mode": mode})
}

func (b *HTMXResponseBuilder) TriggerExpenseRecorded(category, amount string) *HTMXResponseBuilder {
	return b.Trigger(TriggerExpenseRecorded, map[string]string{"category": category, "amount": amount})
}

func (b *HTMXResponseBuilder) TriggerExpenseDeleted(count int) *HTMXResponseBuilder {
	return b.Trigger(TriggerExpenseDeleted, map[string]int{"count": count})
}

func (b *HTMXResponseBuilder) TriggerExpensesCleared() *HTMXResponseBuilder {
	return b.Trigger(TriggerExpensesCleared, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(TriggerFormReset, struct{}{})
}

// TriggerClearConfirm asks the client to show the clear confirmation.
func (b *HTMXResponseBuilder) TriggerClearConfirm() *HTMXResponseBuilder {
	return b.Trigger(TriggerClearConfirm, struct{}{})
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *HTMXResponseBuilder) JSON(v any) *HTMXResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		JSON(ErrorBody{Error: message})
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func TooManyRequestsError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods ...string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", strings.Join(allowedMethods, ", "))
}
