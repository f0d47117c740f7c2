package service

import (
	"errors"
	"fmt"
)

// Kind classifies an error for exit codes and user messages.
type Kind int

const (
	// KindTransport covers network failures and unparseable non-2xx responses.
	KindTransport Kind = iota
	// KindValidation is detected on the client and never reaches the network,
	// or is a 400/422 from the service.
	KindValidation
	// KindAuth covers 401/403 and invalid credentials.
	KindAuth
	// KindNotFound covers operations on a missing resource.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindAuth:
		return "auth error"
	case KindNotFound:
		return "not found"
	default:
		return "transport error"
	}
}

// Sentinels for errors.Is matching against *Error.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTransport  = &Error{Kind: KindTransport}
)

// Error is the single error type surfaced by the gateway and the stores.
// Message is human readable and safe to show.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validationf returns a client-side validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, defaulting to KindTransport for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Message returns the human-readable message of err, or fallback if err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return fallback
}
