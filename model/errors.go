package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Callers should match them with errors.Is; the concrete error
// returned by transports and services is usually a *Error wrapping one of these.
var (
	// ErrInvalidInput indicates a local, syntactic validation failure. The
	// engine is never contacted when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConsumedOrInvalidToken is returned when the callback token is unknown,
	// expired or was already consumed by a previous submission.
	ErrConsumedOrInvalidToken = errors.New("callback token already consumed or invalid")

	// ErrPayloadRejected is returned when the engine refuses the payload
	// (schema or size validation).
	ErrPayloadRejected = errors.New("payload rejected")

	// ErrTransport covers network, timeout, auth and server side failures.
	ErrTransport = errors.New("transport error")

	// ErrEncoding signals a payload that cannot be encoded or decoded.
	ErrEncoding = errors.New("encoding error")

	// ErrFunctionNotFound is returned when the function or qualifier does not exist.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrPayloadTooLarge is returned when an invocation payload exceeds the limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrThrottled is returned when the engine refuses a request due to rate or
	// concurrency limits.
	ErrThrottled = errors.New("throttled")
)

// Error describes a failed operation against the workflow engine.
type Error struct {
	Kind       error
	Op         string
	Detail     string
	StatusCode int
	Cause      error
}

// NewError creates an error of the given kind.
func NewError(kind error, op string, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// WrapError creates an error of the given kind caused by cause.
func WrapError(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func (e *Error) Error() string {
	builder := strings.Builder{}
	if e.Op != "" {
		builder.WriteString(e.Op)
		builder.WriteString(": ")
	}
	if e.Kind != nil {
		builder.WriteString(e.Kind.Error())
	} else {
		builder.WriteString("error")
	}
	if e.StatusCode > 0 {
		builder.WriteString(fmt.Sprintf(" (status %d)", e.StatusCode))
	}
	if e.Detail != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Detail)
	}
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	return builder.String()
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err may succeed when retried. Only transport
// failures and throttling qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrThrottled)
}

// KindOf returns the first known error kind matching err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrConsumedOrInvalidToken,
		ErrPayloadRejected,
		ErrEncoding,
		ErrFunctionNotFound,
		ErrPayloadTooLarge,
		ErrThrottled,
		ErrTransport,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
