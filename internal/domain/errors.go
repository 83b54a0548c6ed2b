package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of the remote model collaborator.
type ErrorKind string

const (
	ErrorKindMalformedRequest   ErrorKind = "malformed_request"
	ErrorKindAccessDenied       ErrorKind = "access_denied"
	ErrorKindModelNotFound      ErrorKind = "model_not_found"
	ErrorKindNetwork            ErrorKind = "network_unreachable"
	ErrorKindCancelled          ErrorKind = "cancelled"
	ErrorKindSessionUnavailable ErrorKind = "session_unavailable"
	ErrorKindUnknown            ErrorKind = "unknown"
)

// ErrNoCredential is returned when no credential could be resolved.
var ErrNoCredential = errors.New("no credential available")

// ModelError carries the kind chosen by the adapter that saw the failure.
type ModelError struct {
	Kind ErrorKind
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or ErrorKindUnknown if it carries none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	if errors.Is(err, ErrNoCredential) {
		return ErrorKindSessionUnavailable
	}
	return ErrorKindUnknown
}
