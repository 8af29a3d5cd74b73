package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/casualjim/chatstream/stream"
	"github.com/tidwall/gjson"
)

// MapHTTPError converts a non-2xx response into a stream error, using the
// message the backend put in the body when there is one.
func MapHTTPError(resp *http.Response) *stream.Error {
	return StatusError(resp.StatusCode, ExtractErrorMessage(resp.Body))
}

// StatusError classifies an HTTP status code.
func StatusError(status int, message string) *stream.Error {
	var kind stream.ErrorKind
	switch {
	case status == http.StatusBadRequest:
		kind = stream.ErrorKindInvalidRequest
		if message == "" {
			message = "invalid request to backend"
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = stream.ErrorKindAuthentication
		if message == "" {
			message = "backend authentication failed"
		}
	case status == http.StatusNotFound:
		kind = stream.ErrorKindNotFound
		if message == "" {
			message = "backend resource not found"
		}
	case status == http.StatusTooManyRequests:
		kind = stream.ErrorKindRateLimited
		if message == "" {
			message = "backend rate limit exceeded"
		}
	case status >= http.StatusInternalServerError:
		kind = stream.ErrorKindServer
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", status)
		}
	default:
		kind = stream.ErrorKindServer
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", status)
		}
	}

	err := stream.NewError(kind, message, nil)
	err.StatusCode = status
	return err
}

// MapNetworkError converts a failed round trip into a stream error.
// Context errors are returned unchanged.
func MapNetworkError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return stream.NewError(stream.ErrorKindTimeout, fmt.Sprintf("backend timeout: %s", err), err)
	}
	return stream.NewError(stream.ErrorKindTransport, fmt.Sprintf("backend connection error: %s", err), err)
}

// ExtractErrorMessage reads at most 4KiB of body and returns the error
// message found in either {"error":"..."} or {"error":{"message":"..."}}.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 || !gjson.ValidBytes(data) {
		return ""
	}

	doc := gjson.ParseBytes(data)
	if msg := doc.Get("error.message"); msg.Type == gjson.String {
		return msg.String()
	}
	if msg := doc.Get("error"); msg.Type == gjson.String {
		return msg.String()
	}
	if msg := doc.Get("message"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}
