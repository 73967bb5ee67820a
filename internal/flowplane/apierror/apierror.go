// Package apierror implements the single error-kind taxonomy the HTTP
// layer maps to status codes (§4.H, §7).
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

// Kind enumerates every error kind a handler may return.
type Kind string

const (
	KindValidation          Kind = "Validation"
	KindBadRequest          Kind = "BadRequest"
	KindUnauthorized        Kind = "Unauthorized"
	KindForbidden           Kind = "Forbidden"
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindServiceUnavailable  Kind = "ServiceUnavailable"
	KindInternal            Kind = "Internal"
)

// APIError is the one error type every handler code path returns.
type APIError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Map implements §4.H's ErrorKind → HTTP status table.
func (e *APIError) Map() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, Cause: cause}
}

// FromValidation classifies model.ValidationErrors as a 400.
func FromValidation(errs model.ValidationErrors) *APIError {
	return New(KindValidation, errs.Error())
}

// FromRepository classifies a repository-layer error per §7: not-found and
// conflict pass through as their matching kind, every other repository
// error (including connectivity failures) is ServiceUnavailable so callers
// may retry.
func FromRepository(err error) *APIError {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Wrap(KindNotFound, "resource not found", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		return Wrap(KindConflict, "resource already exists", err)
	default:
		return Wrap(KindServiceUnavailable, "backing store unavailable", err)
	}
}

// As extracts an *APIError from err, falling back to Internal for any
// error the handler layer did not already classify.
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(KindInternal, "unexpected error", err)
}
