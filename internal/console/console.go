// Package console renders a chat stream on a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/stream"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/fogfish/opts"
	"github.com/k0kubun/pp/v3"
)

type config struct {
	label    string
	spin     bool
	markdown bool
	dump     bool
	spinOut  io.Writer
}

// Option configures a Handler.
type Option = opts.Option[config]

var (
	// WithLabel sets the sender name printed before the answer.
	WithLabel = opts.ForName[config, string]("label")
	// WithSpinner shows a spinner until the first visible output.
	WithSpinner = opts.ForName[config, bool]("spin")
	// WithMarkdown holds the answer back and renders it as markdown once complete.
	WithMarkdown = opts.ForName[config, bool]("markdown")
	// WithDump pretty prints the final response.
	WithDump = opts.ForName[config, bool]("dump")
	// WithSpinnerWriter sets where the spinner draws, stderr by default.
	WithSpinnerWriter = opts.ForName[config, io.Writer]("spinOut")
)

// Handler writes stream callbacks to w as they arrive.
type Handler struct {
	w        io.Writer
	cfg      config
	spinner  *spinner.Spinner
	stopSpin sync.Once
	started  bool
	thinking bool
	done     chan struct{}
	resp     messages.Response
	err      error
}

var _ stream.Handler = (*Handler)(nil)

var faint = color.New(color.FgHiBlack)

// New creates a handler writing to w. With WithSpinner the spinner starts
// right away.
func New(w io.Writer, options ...Option) (*Handler, error) {
	cfg := config{label: "Assistant", spinOut: os.Stderr}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}

	h := &Handler{w: w, cfg: cfg, done: make(chan struct{})}
	if cfg.spin {
		s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(cfg.spinOut))
		s.Suffix = "  Thinking..."
		s.Color("cyan")
		s.Start()
		h.spinner = s
	}
	return h, nil
}

// Done is closed after the terminal callback.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Result returns the final response or the stream error. Only valid after Done.
func (h *Handler) Result() (messages.Response, error) {
	return h.resp, h.err
}

func (h *Handler) stop() {
	h.stopSpin.Do(func() {
		if h.spinner != nil {
			h.spinner.Stop()
		}
	})
}

func (h *Handler) begin() {
	h.stop()
	if !h.started {
		h.started = true
		fmt.Fprint(h.w, color.MagentaString(h.cfg.label)+": ")
	}
}

func (h *Handler) OnPartialResponse(_ context.Context, text string) {
	if h.cfg.markdown || text == "" {
		return
	}
	if h.thinking {
		h.thinking = false
		fmt.Fprintln(h.w)
	}
	h.begin()
	fmt.Fprint(h.w, text)
}

func (h *Handler) OnPartialThinking(_ context.Context, text string) {
	if text == "" {
		return
	}
	h.stop()
	h.thinking = true
	fmt.Fprint(h.w, faint.Sprint(text))
}

func (h *Handler) OnCompleteToolCall(_ context.Context, call messages.ToolCall) {
	if call.Name == "" {
		return
	}
	h.stop()
	if h.started || h.thinking {
		h.started, h.thinking = false, false
		fmt.Fprintln(h.w)
	}
	args := strings.ReplaceAll(call.Arguments, ": ", "=")
	fmt.Fprintf(h.w, "%s%s\n", color.YellowString(call.Name), args)
}

func (h *Handler) OnCompleteResponse(_ context.Context, resp messages.Response) {
	defer close(h.done)
	h.stop()
	h.resp = resp

	if h.cfg.markdown && resp.Text != "" {
		if h.thinking {
			fmt.Fprintln(h.w)
		}
		fmt.Fprintln(h.w, color.MagentaString(h.cfg.label)+":")
		fmt.Fprint(h.w, render(resp.Text))
	} else if h.started || h.thinking {
		fmt.Fprintln(h.w)
	}

	if resp.Usage != nil {
		fmt.Fprintln(h.w, faint.Sprintf("tokens: in=%d out=%d total=%d finish=%s",
			resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens, resp.FinishReason))
	}
	if h.cfg.dump {
		pp.Fprintln(h.w, resp)
	}
}

func (h *Handler) OnError(_ context.Context, err error) {
	defer close(h.done)
	h.stop()
	h.err = err
	if h.started || h.thinking {
		fmt.Fprintln(h.w)
	}
	fmt.Fprintf(h.w, "%s %v\n", color.RedString("Error:"), err)
}

func render(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
