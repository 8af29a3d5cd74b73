package relay

import (
	"context"
	"fmt"
	"slices"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/uuidx"
	"github.com/casualjim/chatstream/stream"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EventType names the callback an Event carries.
type EventType string

const (
	EventPartial  EventType = "partial"
	EventThinking EventType = "thinking"
	EventToolCall EventType = "tool_call"
	EventResponse EventType = "response"
	EventError    EventType = "error"
)

var prefabs = map[EventType][]byte{
	EventPartial:  []byte(`{"type":"partial"}`),
	EventThinking: []byte(`{"type":"thinking"}`),
	EventToolCall: []byte(`{"type":"tool_call"}`),
	EventResponse: []byte(`{"type":"response"}`),
	EventError:    []byte(`{"type":"error"}`),
}

// Event is one handler callback on the wire. Seq starts at 1 and grows by
// one per event of a stream.
type Event struct {
	Type      EventType
	StreamID  uuid.UUID
	Seq       uint64
	Text      string
	ToolCall  messages.ToolCall
	Response  messages.Response
	Err       *stream.Error
	Timestamp strfmt.DateTime
}

// Terminal reports whether the event ends its stream.
func (e Event) Terminal() bool {
	return e.Type == EventResponse || e.Type == EventError
}

// Dispatch invokes the handler callback the event stands for.
func (e Event) Dispatch(ctx context.Context, h stream.Handler) {
	switch e.Type {
	case EventPartial:
		h.OnPartialResponse(ctx, e.Text)
	case EventThinking:
		h.OnPartialThinking(ctx, e.Text)
	case EventToolCall:
		h.OnCompleteToolCall(ctx, e.ToolCall)
	case EventResponse:
		h.OnCompleteResponse(ctx, e.Response)
	case EventError:
		var err error = e.Err
		if e.Err == nil {
			err = stream.NewError(stream.ErrorKindUnknown, "relayed stream failed", nil)
		}
		h.OnError(ctx, err)
	}
}

// MarshalJSON implements custom JSON marshaling for Event
func (e Event) MarshalJSON() ([]byte, error) {
	prefab, ok := prefabs[e.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	result := slices.Clone(prefab)

	var err error
	result, err = sjson.SetBytes(result, "stream_id", e.StreamID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "seq", e.Seq)
	if err != nil {
		return nil, err
	}
	if !e.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	switch e.Type {
	case EventPartial, EventThinking:
		return sjson.SetBytes(result, "text", e.Text)
	case EventToolCall:
		callBytes, err := json.Marshal(e.ToolCall)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool call: %w", err)
		}
		return sjson.SetRawBytes(result, "tool_call", callBytes)
	case EventResponse:
		resp := e.Response
		if resp.ToolCalls == nil {
			resp.ToolCalls = []messages.ToolCall{}
		}
		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return sjson.SetRawBytes(result, "response", respBytes)
	default:
		return marshalError(result, e.Err)
	}
}

func marshalError(result []byte, se *stream.Error) ([]byte, error) {
	if se == nil {
		return sjson.SetBytes(result, "error.kind", stream.ErrorKindUnknown.String())
	}

	var err error
	result, err = sjson.SetBytes(result, "error.kind", se.Kind.String())
	if err != nil {
		return nil, err
	}
	if se.StatusCode != 0 {
		result, err = sjson.SetBytes(result, "error.status_code", se.StatusCode)
		if err != nil {
			return nil, err
		}
	}
	msg := se.Message
	if msg == "" && se.Err != nil {
		msg = se.Err.Error()
	}
	return sjson.SetBytes(result, "error.message", msg)
}

// UnmarshalJSON implements custom JSON unmarshaling for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if _, ok := prefabs[EventType(msgType.String())]; !ok {
		return fmt.Errorf("missing or invalid event type %q", msgType.String())
	}
	e.Type = EventType(msgType.String())

	streamID := gjson.GetBytes(data, "stream_id")
	if !streamID.Exists() {
		return fmt.Errorf("missing required field 'stream_id'")
	}
	id, err := uuidx.Parse(streamID.String())
	if err != nil {
		return fmt.Errorf("invalid stream_id: %w", err)
	}
	e.StreamID = id

	seq := gjson.GetBytes(data, "seq")
	if !seq.Exists() {
		return fmt.Errorf("missing required field 'seq'")
	}
	e.Seq = seq.Uint()

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := e.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	switch e.Type {
	case EventPartial, EventThinking:
		e.Text = gjson.GetBytes(data, "text").String()
	case EventToolCall:
		call := gjson.GetBytes(data, "tool_call")
		if !call.IsObject() {
			return fmt.Errorf("missing required field 'tool_call'")
		}
		if err := json.Unmarshal([]byte(call.Raw), &e.ToolCall); err != nil {
			return fmt.Errorf("invalid tool_call: %w", err)
		}
	case EventResponse:
		resp := gjson.GetBytes(data, "response")
		if !resp.IsObject() {
			return fmt.Errorf("missing required field 'response'")
		}
		if err := json.Unmarshal([]byte(resp.Raw), &e.Response); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
		if e.Response.ToolCalls == nil {
			e.Response.ToolCalls = []messages.ToolCall{}
		}
	case EventError:
		e.Err = &stream.Error{
			Kind:       stream.ParseErrorKind(gjson.GetBytes(data, "error.kind").String()),
			StatusCode: int(gjson.GetBytes(data, "error.status_code").Int()),
			Message:    gjson.GetBytes(data, "error.message").String(),
			Timestamp:  e.Timestamp,
		}
	}
	return nil
}
