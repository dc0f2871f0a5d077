package retirement

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can choose between retry, surface or ignore.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnectivity reports that the remote service could not be reached.
	KindConnectivity
	// KindNotFound reports that the household has no stored data yet.
	KindNotFound
	// KindValidation reports that an entity or patch was rejected before being applied.
	KindValidation
	// KindServerFault reports that the remote service answered with an error.
	KindServerFault
	// KindMalformed reports a response that could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServerFault:
		return "server fault"
	case KindMalformed:
		return "malformed response"
	}
	return "unknown"
}

// Error is the tagged error returned by the remote client and recorded by the store.
type Error struct {
	Kind    Kind
	Op      string // e.g. "get_family_info"
	Message string // human readable, already suitable for display
	Cause   error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConnectivity = &Error{Kind: KindConnectivity}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrServerFault  = &Error{Kind: KindServerFault}
	ErrMalformed    = &Error{Kind: KindMalformed}
)

// NewError returns a new *Error.
func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
