// Package apperr defines the error taxonomy shared by services and the HTTP
// layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindUpstream          Kind = "upstream_service"
	KindStorageConnection Kind = "storage_connection"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Upstream wraps a failed OCR or AI call; the message is shown to the client.
func Upstream(message string, err error) error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

func StorageConnection(err error) error {
	return &Error{Kind: KindStorageConnection, Message: "database connection error", Err: err}
}

func Internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf reports the taxonomy kind of err; untyped errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing text of err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Message != "" {
			if appErr.Kind == KindUpstream && appErr.Err != nil {
				return appErr.Error()
			}
			return appErr.Message
		}
	}
	return err.Error()
}
