// Package fault classifies failures that cross a boundary: collaborator
// calls, persistence and user input. Callers keep their previous local state
// when a fault is returned and surface the fault's user message instead.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind is the category of a failure.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNetwork        Kind = "network"
	KindAuthExpired    Kind = "auth_expired"
	KindForbidden      Kind = "forbidden"
	KindInvalidPayload Kind = "invalid_payload"
	KindServerError    Kind = "server_error"
	KindTimeout        Kind = "timeout"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
)

// Error is a classified failure. Field names the offending input for
// validation failures.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a fault of kind k.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind k. A nil err yields nil.
func Wrap(k Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports a rejected input field.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first fault in err's chain, or
// KindServerError for unclassified errors.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindServerError
}

// Is reports whether err carries a fault of kind k.
func Is(err error, k Kind) bool {
	var f *Error
	return errors.As(err, &f) && f.Kind == k
}

// UserMessage is the fixed text shown to a user for kind k.
func UserMessage(k Kind) string {
	switch k {
	case KindValidation:
		return "Some inputs are invalid. Check the highlighted fields."
	case KindNetwork:
		return "Unable to reach the calculation service. Check your connection and try again."
	case KindAuthExpired:
		return "Your session has expired. Please sign in again."
	case KindForbidden:
		return "You do not have permission to perform this action."
	case KindInvalidPayload:
		return "The request was rejected as malformed."
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindConflict:
		return "The change could not be saved. Please retry."
	case KindNotFound:
		return "The requested item was not found."
	}
	return "Something went wrong on our side. Please try again later."
}

// FromStatus classifies a non-2xx collaborator response.
func FromStatus(code int, body string) *Error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = http.StatusText(code)
	}

	var k Kind
	switch {
	case code == http.StatusUnauthorized:
		k = KindAuthExpired
	case code == http.StatusForbidden:
		k = KindForbidden
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		k = KindInvalidPayload
	case code == http.StatusNotFound:
		k = KindNotFound
	case code == http.StatusConflict:
		k = KindConflict
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		k = KindTimeout
	case code >= 500:
		k = KindServerError
	default:
		k = KindInvalidPayload
	}
	return &Error{Kind: k, Message: fmt.Sprintf("status %d: %s", code, msg)}
}

// FromTransport classifies an error raised before any response arrived.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	var f *Error
	if errors.As(err, &f) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "collaborator call timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "collaborator call timed out", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "collaborator unreachable", Err: err}
}

// HTTPStatus maps err to the status this engine answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidPayload:
		return http.StatusBadRequest
	case KindAuthExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
