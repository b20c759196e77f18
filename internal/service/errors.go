package service

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a caller is expected to act on.  Anything
// that is not an *Error is an infrastructure failure and should be treated
// as retryable by whoever owns retry policy.
type Kind int

const (
	// KindNotFound: unknown offender, or an offender with no (current) booking.
	KindNotFound Kind = iota + 1
	// KindInvalidRequest: unknown profile type or code, or a malformed value.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	}
	return "unknown"
}

// Error is a classified service failure.  Msg is safe to return to callers
// and always names the offending offender, type or code.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidRequest, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or 0 for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err is a KindNotFound service error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidRequest reports whether err is a KindInvalidRequest service error.
func IsInvalidRequest(err error) bool { return KindOf(err) == KindInvalidRequest }
