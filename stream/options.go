package stream

import (
	"log/slog"

	"github.com/fogfish/opts"
)

type config struct {
	captureThinking bool
	logger          *slog.Logger
	errorMapper     ErrorMapper
	streamID        string
}

// Option configures an Assembler.
type Option = opts.Option[config]

var (
	// WithThinking keeps thinking deltas and forwards them to OnPartialThinking.
	WithThinking = opts.ForName[config, bool]("captureThinking")
	// WithLogger sets the logger used for dropped input and handler panics.
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
	// WithErrorMapper replaces DefaultErrorMapper.
	WithErrorMapper = opts.ForName[config, ErrorMapper]("errorMapper")
	// WithStreamID sets the id attached to log records. A v7 UUID is used otherwise.
	WithStreamID = opts.ForName[config, string]("streamID")
)
