// Package apperr defines the error kinds shared by the server handlers, the
// API client and the client data store.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	Internal Kind = iota
	// Validation is a missing or malformed field, rejected before any write.
	Validation
	// Conflict is a duplicate name within a wedding.
	Conflict
	// NotFound is an id or code that does not exist for the active wedding.
	NotFound
	// Transient is a network or server outage; safe writes are queued.
	Transient
	// Expired is a well-formed code whose wedding expired or was deleted.
	Expired
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case Expired:
		return "expired"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation = &Error{Kind: Validation}
	ErrConflict   = &Error{Kind: Conflict}
	ErrNotFound   = &Error{Kind: NotFound}
	ErrTransient  = &Error{Kind: Transient}
	ErrExpired    = &Error{Kind: Expired}
	ErrInternal   = &Error{Kind: Internal}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works
// for every conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

// Status maps an error to the HTTP status the API answers with.
// Expired weddings are reported as 404 so clients clear their session.
func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound, Expired:
		return http.StatusNotFound
	case Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus is the inverse of Status used by the API client.
func FromStatus(status int, msg string) error {
	var kind Kind
	switch {
	case status == http.StatusBadRequest:
		kind = Validation
	case status == http.StatusConflict:
		kind = Conflict
	case status == http.StatusNotFound:
		kind = NotFound
	case status >= 500:
		kind = Transient
	default:
		kind = Internal
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Kind: kind, Msg: msg}
}

// Definitive reports whether the server made a final decision about the
// request. Such failures are rolled back, never queued.
func Definitive(err error) bool {
	switch KindOf(err) {
	case Validation, Conflict, NotFound, Expired:
		return true
	}
	return false
}
