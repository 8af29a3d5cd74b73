package ollama

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/slogx"
	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/stream"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
)

const (
	// DefaultBaseURL is used when neither WithBaseURL nor OLLAMA_BASE_URL is set.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultTimeout bounds a whole request, including reading the stream.
	DefaultTimeout = 300 * time.Second

	maxLineSize = 8 << 20
)

var _ provider.Provider = (*Client)(nil)

// Client talks to one Ollama server.
type Client struct {
	baseURL    string
	timeout    time.Duration
	keepAlive  string
	headers    http.Header
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option = opts.Option[Client]

var (
	WithBaseURL    = opts.ForName[Client, string]("baseURL")
	WithTimeout    = opts.ForName[Client, time.Duration]("timeout")
	WithKeepAlive  = opts.ForName[Client, string]("keepAlive")
	WithHTTPClient = opts.ForName[Client, *http.Client]("httpClient")
	WithLogger     = opts.ForName[Client, *slog.Logger]("logger")
)

// WithHeader adds a header to every request, e.g. for an authenticating proxy.
func WithHeader(key, value string) Option {
	return opts.Type[Client](func(c *Client) error {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(key, value)
		return nil
	})
}

// New creates a client. The base URL defaults to $OLLAMA_BASE_URL, then DefaultBaseURL.
func New(options ...Option) (*Client, error) {
	c := &Client{
		baseURL: os.Getenv("OLLAMA_BASE_URL"),
		timeout: DefaultTimeout,
	}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slogx.LoggerName("chatstream.ollama"))
	return c, nil
}

// MustNew is New that panics on an invalid option.
func MustNew(options ...Option) *Client {
	return stdx.Must1(New(options...))
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChatStream streams req from /api/chat into handler.
func (c *Client) ChatStream(ctx context.Context, req provider.ChatRequest, handler stream.Handler, options ...stream.Option) error {
	options = append([]stream.Option{stream.WithLogger(c.logger)}, options...)
	return provider.Run(ctx, req, c.fragments(ctx, req), handler, options...)
}

// Chat streams req and returns the final response, or the error the stream
// failed with.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest, options ...stream.Option) (messages.Response, error) {
	return provider.Chat(ctx, c, req, options...)
}

func (c *Client) fragments(ctx context.Context, req provider.ChatRequest) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		body, err := encodeRequest(req, c.keepAlive)
		if err != nil {
			yield(stream.Fragment{}, stream.NewError(stream.ErrorKindInvalidRequest, "encode chat request", err))
			return
		}

		resp, err := c.do(ctx, http.MethodPost, "/api/chat", body, "application/x-ndjson")
		if err != nil {
			yield(stream.Fragment{}, err)
			return
		}
		defer resp.Body.Close()

		c.logger.DebugContext(ctx, "chat stream opened", slog.String("model", req.Model), slog.Int("status", resp.StatusCode))

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			f, err := decodeFragment(line)
			if !yield(f, err) || err != nil {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			yield(stream.Fragment{}, provider.MapNetworkError(fmt.Errorf("read chat stream: %w", err)))
		}
	}
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, stream.NewError(stream.ErrorKindDecode, "decode model list", err)
	}
	if tags.Models == nil {
		tags.Models = []ModelInfo{}
	}
	return tags.Models, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, accept string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, stream.NewError(stream.ErrorKindInvalidRequest, "build request", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", accept)
	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed", slog.String("path", path), slogx.Error(err))
		return nil, provider.MapNetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, provider.MapHTTPError(resp)
	}
	return resp, nil
}
