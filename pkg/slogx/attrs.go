// Package slogx holds the slog attribute helpers shared by the library packages.
package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the attribute key that names the component emitting a record.
	KeyLoggerName = "logger"
	// KeyStreamID is the attribute key for the id of a single streamed response.
	KeyStreamID = "stream_id"
)

// Error returns an "error" attribute holding err's message.
// A nil error renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer returns an attribute with the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns the attribute used to scope a logger to a component.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// StreamID returns the attribute that ties log records to one stream.
func StreamID(id string) slog.Attr {
	return slog.String(KeyStreamID, id)
}

// Recovered turns a value obtained from recover() into an attribute.
func Recovered(v any) slog.Attr {
	if err, ok := v.(error); ok {
		return slog.String("panic", err.Error())
	}
	return slog.String("panic", fmt.Sprint(v))
}
