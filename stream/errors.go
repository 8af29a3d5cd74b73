package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-openapi/strfmt"
)

var (
	// ErrStreamClosed is reported when a source ends without a terminal fragment.
	ErrStreamClosed = errors.New("stream closed before completion")
	// ErrNoHandler is returned when an assembler is built without a handler.
	ErrNoHandler = errors.New("stream handler is required")
)

// ErrorKind classifies a stream failure.
type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindTransport
	ErrorKindDecode
	ErrorKindProtocol
	ErrorKindCanceled
	ErrorKindTimeout
	ErrorKindInvalidRequest
	ErrorKindAuthentication
	ErrorKindNotFound
	ErrorKindRateLimited
	ErrorKindServer
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "transport"
	case ErrorKindDecode:
		return "decode"
	case ErrorKindProtocol:
		return "protocol"
	case ErrorKindCanceled:
		return "canceled"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindInvalidRequest:
		return "invalid_request"
	case ErrorKindAuthentication:
		return "authentication"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindRateLimited:
		return "rate_limited"
	case ErrorKindServer:
		return "server"
	default:
		return "unknown"
	}
}

// ParseErrorKind is the inverse of ErrorKind.String. Unknown names map to ErrorKindUnknown.
func ParseErrorKind(name string) ErrorKind {
	for k := ErrorKindTransport; k <= ErrorKindServer; k++ {
		if k.String() == name {
			return k
		}
	}
	return ErrorKindUnknown
}

// Error is the error type handed to Handler.OnError.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
	Timestamp  strfmt.DateTime
}

// NewError builds an Error stamped with the current time.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Err:       cause,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether sending the same request again may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrorKindTransport, ErrorKindTimeout, ErrorKindRateLimited, ErrorKindServer:
		return true
	default:
		return false
	}
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// ErrorMapper turns the raw failure of a stream into the error given to OnError.
type ErrorMapper interface {
	MapError(err error) error
}

// ErrorMapperFunc adapts a function to an ErrorMapper.
type ErrorMapperFunc func(err error) error

func (f ErrorMapperFunc) MapError(err error) error {
	return f(err)
}

// DefaultErrorMapper classifies errors with MapError.
var DefaultErrorMapper ErrorMapper = ErrorMapperFunc(MapError)

// MapError wraps err in an *Error. Errors that already are an *Error pass
// through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return NewError(ErrorKindCanceled, "stream canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorKindTimeout, "stream deadline exceeded", err)
	case errors.Is(err, ErrToolCallOutOfOrder), errors.Is(err, ErrStreamClosed):
		return NewError(ErrorKindProtocol, err.Error(), err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewError(ErrorKindTimeout, err.Error(), err)
	case errors.As(err, &netErr), errors.Is(err, io.ErrUnexpectedEOF):
		return NewError(ErrorKindTransport, err.Error(), err)
	default:
		return NewError(ErrorKindUnknown, err.Error(), err)
	}
}
