// Package apperrors defines the service's error taxonomy and its mapping to
// HTTP status codes. Services return typed errors; the HTTP layer translates
// them without inspecting message strings.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/pkg/respond"
)

// Kind classifies an error for HTTP translation.
type Kind int

const (
	// KindInternal is a store or downstream failure. Maps to 500.
	KindInternal Kind = iota
	// KindValidation is malformed input. Maps to 400.
	KindValidation
	// KindNotFound is a missing or foreign-owned resource. Maps to 404.
	KindNotFound
	// KindConflict is a scheduling or state conflict. Maps to 400, matching
	// the API contract where conflicts are client errors.
	KindConflict
	// KindAuthorization is a role mismatch. Maps to 403.
	KindAuthorization
)

// E is a classified error with a client-safe message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.Err }

// Validationf creates a validation error.
func Validationf(format string, args ...interface{}) *E {
	return &E{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not-found error.
func NotFoundf(format string, args ...interface{}) *E {
	return &E{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf creates a conflict error.
func Conflictf(format string, args ...interface{}) *E {
	return &E{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf creates an authorization error.
func Authorizationf(format string, args ...interface{}) *E {
	return &E{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a downstream failure with a client-safe message.
func Internal(message string, err error) *E {
	return &E{Kind: KindInternal, Message: message, Err: err}
}

// HTTPStatus maps an error to its response status code. Unclassified errors
// are treated as internal.
func HTTPStatus(err error) int {
	var e *E
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Render writes the error as a response envelope. Internal errors expose the
// underlying cause only when dev is true; production clients get a generic
// detail string.
func Render(c echo.Context, err error, dev bool) error {
	status := HTTPStatus(err)

	var e *E
	if !errors.As(err, &e) {
		if dev {
			return respond.FailWithDetail(c, status, "Something went wrong", err.Error())
		}
		return respond.Fail(c, status, "Something went wrong")
	}

	if e.Kind == KindInternal {
		detail := "Something went wrong"
		if dev && e.Err != nil {
			detail = e.Err.Error()
		}
		return respond.FailWithDetail(c, status, e.Message, detail)
	}
	return respond.Fail(c, status, e.Message)
}
