package messages

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// FinishReason says why the model stopped generating.
// The zero value means the backend did not report a reason.
type FinishReason uint8

const (
	FinishReasonUnset FinishReason = iota
	FinishReasonStop
	FinishReasonLength
	FinishReasonOther
)

var jsonNull = []byte(`null`)

// ParseFinishReason maps a backend reason code. Codes other than
// "stop" and "length" map to FinishReasonOther, including the empty string.
func ParseFinishReason(code string) FinishReason {
	switch code {
	case "stop":
		return FinishReasonStop
	case "length":
		return FinishReasonLength
	default:
		return FinishReasonOther
	}
}

// IsSet reports whether a reason was reported.
func (f FinishReason) IsSet() bool {
	return f != FinishReasonUnset
}

func (f FinishReason) String() string {
	switch f {
	case FinishReasonStop:
		return "stop"
	case FinishReasonLength:
		return "length"
	case FinishReasonOther:
		return "other"
	default:
		return ""
	}
}

func (f FinishReason) MarshalJSON() ([]byte, error) {
	if !f.IsSet() {
		return jsonNull, nil
	}
	return json.Marshal(f.String())
}

func (f *FinishReason) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FinishReasonUnset
		return nil
	}
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("finish reason: %w", err)
	}
	*f = ParseFinishReason(code)
	return nil
}
