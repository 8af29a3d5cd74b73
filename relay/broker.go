package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/slogx"
	"github.com/casualjim/chatstream/pkg/uuidx"
	"github.com/casualjim/chatstream/stream"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrHandlerRequired is returned by Subscribe when no handler is given.
var ErrHandlerRequired = errors.New("relay: handler is required")

const subscriptionBuffer = 50

type config struct {
	logger *slog.Logger
}

// Option configures a Broker.
type Option = opts.Option[config]

// WithLogger sets the logger used for publish and decode failures.
var WithLogger = opts.ForName[config, *slog.Logger]("logger")

// Broker hands out topics bound to one NATS connection.
type Broker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *Topic]
	logger *slog.Logger
}

// NewBroker creates a broker over an established connection.
func NewBroker(client *nats.Conn, options ...Option) (*Broker, error) {
	if client == nil {
		return nil, errors.New("relay: nats connection is required")
	}
	cfg := config{logger: slog.Default()}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	return &Broker{
		client: client,
		topics: haxmap.New[string, *Topic](),
		logger: cfg.logger.With(slogx.LoggerName("chatstream.relay")),
	}, nil
}

// Topic returns the topic for a subject, creating it on first use.
func (b *Broker) Topic(subject string) *Topic {
	top, _ := b.topics.GetOrCompute(subject, func() *Topic {
		return &Topic{
			subject: subject,
			client:  b.client,
			logger:  b.logger.With(slog.String("subject", subject)),
		}
	})
	return top
}

// Topic is a NATS subject carrying the events of one stream at a time.
type Topic struct {
	client  *nats.Conn
	subject string
	logger  *slog.Logger
}

// Subject returns the NATS subject of the topic.
func (t *Topic) Subject() string {
	return t.subject
}

// Publisher returns a handler that publishes every callback on the topic
// under a fresh stream id.
func (t *Topic) Publisher() *Publisher {
	id := uuidx.New()
	return &Publisher{
		client:   t.client,
		subject:  t.subject,
		streamID: id,
		logger:   t.logger.With(slogx.StreamID(id.String())),
	}
}

// Publisher is a stream.Handler that forwards callbacks to NATS.
// Callbacks of one stream arrive from a single goroutine, so the sequence
// counter needs no locking.
type Publisher struct {
	client   *nats.Conn
	subject  string
	streamID uuid.UUID
	seq      uint64
	logger   *slog.Logger
}

var _ stream.Handler = (*Publisher)(nil)

// StreamID returns the id stamped on every published event.
func (p *Publisher) StreamID() uuid.UUID {
	return p.streamID
}

func (p *Publisher) OnPartialResponse(_ context.Context, text string) {
	p.publish(Event{Type: EventPartial, Text: text})
}

func (p *Publisher) OnPartialThinking(_ context.Context, text string) {
	p.publish(Event{Type: EventThinking, Text: text})
}

func (p *Publisher) OnCompleteToolCall(_ context.Context, call messages.ToolCall) {
	p.publish(Event{Type: EventToolCall, ToolCall: call})
}

func (p *Publisher) OnCompleteResponse(_ context.Context, resp messages.Response) {
	p.publish(Event{Type: EventResponse, Response: resp})
	p.flush()
}

func (p *Publisher) OnError(_ context.Context, err error) {
	var se *stream.Error
	if !errors.As(stream.MapError(err), &se) {
		se = stream.NewError(stream.ErrorKindUnknown, "stream failed", err)
	}
	p.publish(Event{Type: EventError, Err: se})
	p.flush()
}

func (p *Publisher) publish(e Event) {
	p.seq++
	e.StreamID = p.streamID
	e.Seq = p.seq
	e.Timestamp = strfmt.DateTime(time.Now())

	data, err := e.MarshalJSON()
	if err != nil {
		p.logger.Error("failed to marshal event", slogx.Error(err), slog.String("type", string(e.Type)))
		return
	}
	if err := p.client.Publish(p.subject, data); err != nil {
		p.logger.Error("failed to publish event", slogx.Error(err), slog.String("type", string(e.Type)))
	}
}

func (p *Publisher) flush() {
	if err := p.client.Flush(); err != nil {
		p.logger.Error("failed to flush connection", slogx.Error(err))
	}
}

// Subscribe replays the next stream published on the topic into handler.
// The handler sees exactly one terminal callback: the relayed response or
// error, or an error when ctx ends or the subscription closes first. The
// subscription is released after the terminal callback.
func (t *Topic) Subscribe(ctx context.Context, handler stream.Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	events := make(chan Event, subscriptionBuffer)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		var event Event
		if err := event.UnmarshalJSON(msg.Data); err != nil {
			t.logger.Error("failed to unmarshal event", slogx.Error(err))
			return
		}
		events <- event
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(events) })

	sub := &Subscription{
		id:     uuidx.NewString(),
		sub:    nsub,
		done:   make(chan struct{}),
		logger: t.logger,
	}
	go sub.forward(ctx, events, handler)
	return sub, nil
}

// Subscription is a live replay of one relayed stream.
type Subscription struct {
	id        string
	sub       *nats.Subscription
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func (s *Subscription) ID() string {
	return s.id
}

// Done is closed after the handler received its terminal callback.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops the replay. A handler that has not seen a terminal
// callback yet receives stream.ErrStreamClosed.
func (s *Subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", s.id))
		}
	})
}

func (s *Subscription) forward(ctx context.Context, events <-chan Event, handler stream.Handler) {
	defer close(s.done)

	var (
		streamID uuid.UUID
		lastSeq  uint64
	)
	finish := func() {
		s.Unsubscribe()
		go drain(events)
	}

	for {
		select {
		case <-ctx.Done():
			s.safely(ctx, "OnError", func() { handler.OnError(ctx, stream.MapError(ctx.Err())) })
			finish()
			return
		case event, ok := <-events:
			if !ok {
				s.safely(ctx, "OnError", func() { handler.OnError(ctx, stream.MapError(stream.ErrStreamClosed)) })
				return
			}
			// the first event pins the stream; later streams on the subject are not ours
			if streamID == uuid.Nil {
				streamID = event.StreamID
			} else if event.StreamID != streamID {
				s.logger.Debug("skipping event of another stream", slogx.StreamID(event.StreamID.String()))
				continue
			}
			if event.Seq <= lastSeq {
				s.logger.Debug("skipping replayed event", slog.Uint64("seq", event.Seq))
				continue
			}
			lastSeq = event.Seq

			s.safely(ctx, string(event.Type), func() { event.Dispatch(ctx, handler) })
			if event.Terminal() {
				finish()
				return
			}
		}
	}
}

// safely runs one handler callback. A panic is logged and does not end the replay.
func (s *Subscription) safely(ctx context.Context, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "handler callback panicked", slog.String("callback", callback), slogx.Recovered(r))
		}
	}()
	fn()
}

// drain keeps the delivery callback from blocking until NATS closes the channel.
func drain(events <-chan Event) {
	for range events {
	}
}
