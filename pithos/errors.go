package pithos

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies the outcome of a call.
type Kind uint8

const (
	KindOK Kind = iota
	KindInvalidArgument
	KindNotFound
	KindUnauthorized
	KindPreconditionFailed
	KindClientError
	KindServerError
	KindMalformedResponse
	KindTransportFailure
	KindUnknownStatus
)

var kindNames = [...]string{
	KindOK:                 "OK",
	KindInvalidArgument:    "InvalidArgument",
	KindNotFound:           "NotFound",
	KindUnauthorized:       "Unauthorized",
	KindPreconditionFailed: "PreconditionFailed",
	KindClientError:        "ClientError",
	KindServerError:        "ServerError",
	KindMalformedResponse:  "MalformedResponse",
	KindTransportFailure:   "TransportFailure",
	KindUnknownStatus:      "UnknownStatus",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ClassifyStatus maps every HTTP status code to exactly one Kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status >= 200 && status <= 299:
		return KindOK
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusPreconditionFailed, status == http.StatusPreconditionRequired:
		return KindPreconditionFailed
	case status >= 400 && status <= 499:
		return KindClientError
	case status >= 500 && status <= 599:
		return KindServerError
	default:
		return KindUnknownStatus
	}
}

// Error is the single error type returned by this package.
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP status, zero when no response was received
	Op         string // operation name, e.g. "GetObject"
	Path       string // account[/container[/object]]
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("pithos %s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("pithos %s: %s", e.Op, msg)
	}
	return "pithos: " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed, Message: "precondition failed"}
	ErrClientError        = &Error{Kind: KindClientError, Message: "client error"}
	ErrServerError        = &Error{Kind: KindServerError, Message: "server error"}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse, Message: "malformed response"}
	ErrTransportFailure   = &Error{Kind: KindTransportFailure, Message: "transport failure"}
	ErrUnknownStatus      = &Error{Kind: KindUnknownStatus, Message: "unknown status"}
)

func invalidArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func malformed(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind carried by err, KindOK for nil and
// KindTransportFailure for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransportFailure
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func IsUnauthorized(err error) bool {
	return err != nil && KindOf(err) == KindUnauthorized
}

func IsPreconditionFailed(err error) bool {
	return err != nil && KindOf(err) == KindPreconditionFailed
}

// withContext fills in the operation and path on a taxonomy error produced
// deeper in the stack.
func withContext(err error, op, path string) error {
	var pe *Error
	if !errors.As(err, &pe) {
		return &Error{Kind: KindTransportFailure, Op: op, Path: path, Cause: err}
	}
	out := *pe
	if out.Op == "" {
		out.Op = op
	}
	if out.Path == "" {
		out.Path = path
	}
	return &out
}
