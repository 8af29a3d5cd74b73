package stream

import "strings"

// ContentAggregator concatenates text and thinking deltas verbatim.
type ContentAggregator struct {
	captureThinking bool
	text            strings.Builder
	thinking        strings.Builder
}

func NewContentAggregator(captureThinking bool) *ContentAggregator {
	return &ContentAggregator{captureThinking: captureThinking}
}

func (c *ContentAggregator) AppendContent(text string) {
	c.text.WriteString(text)
}

// AppendThinking is a no-op unless thinking capture is enabled.
func (c *ContentAggregator) AppendThinking(text string) {
	if !c.captureThinking {
		return
	}
	c.thinking.WriteString(text)
}

// CapturesThinking reports whether thinking deltas are kept.
func (c *ContentAggregator) CapturesThinking() bool {
	return c.captureThinking
}

func (c *ContentAggregator) Text() string {
	return c.text.String()
}

func (c *ContentAggregator) Thinking() string {
	return c.thinking.String()
}
