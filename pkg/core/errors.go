package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrBusy         = errors.New("another operation on this note is in flight")
	ErrMoveInFlight = fmt.Errorf("a move for this note is already in flight: %w", ErrBusy)
	ErrUnsupported  = errors.New("operation not supported by remote")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRemote       = errors.New("remote call failed")
	ErrReadOnly     = errors.New("backend is in read-only mode")
)

// ValidationError is returned before any remote call when input is rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RemoteError describes a non-2xx answer from the remote persistence service.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: status=%d, body=%s", e.Status, e.Body)
}

// Is lets errors.Is match the status-derived sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// NotFound builds the error a backend returns for an unknown id.
func NotFound(kind EntityKind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
