// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package errs defines the error taxonomy shared by the runtime components.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is the category of a runtime error
type Kind string

const (
	// KindValidation indicates a malformed ingest payload or configuration
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNotFound indicates a record that is not (or no longer) retained
	KindNotFound Kind = "NOT_FOUND"
	// KindStorage indicates a snapshot serialization or write failure
	KindStorage Kind = "STORAGE_FAILURE"
	// KindUnavailable indicates the background cycle is temporarily stalled
	KindUnavailable Kind = "TRANSIENT_UNAVAILABLE"
)

// Sentinels usable with errors.Is
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrStorage     = &Error{Kind: KindStorage}
	ErrUnavailable = &Error{Kind: KindUnavailable}
)

// Error is a typed runtime error carrying enough detail for the caller to react
type Error struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Cause   error             `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, "; "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Is matches on Kind so that errors.Is(err, ErrValidation) works for any validation error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField attaches a per-field detail
func (e *Error) WithField(field, problem string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
	return e
}

// Validation creates a validation error
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound creates a not-found error
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a snapshot persistence failure
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, Cause: cause}
}

// Unavailable creates a transient-unavailability error
func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

// KindOf returns the Kind of err, or "" if it is not a runtime error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the HTTP layer should return
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
