package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

var (
	// ErrSourceRequired is returned when Consume gets an empty topic/subject/subscription.
	ErrSourceRequired = errors.New("messaging: source is required")
	// ErrHandlerRequired is returned when Consume gets a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned when the broker needs a group (Kafka group, NSQ channel).
	ErrGroupRequired = errors.New("messaging: consumer group is required")
)

// Consumer receives messages from a broker until ctx is done.
type Consumer interface {
	io.Closer

	// Consume blocks, calling handler for every message on source.
	Consume(ctx context.Context, source string, handler Handler) error
}

// Handler processes one message. nil acks it; an error nacks it.
type Handler func(ctx context.Context, msg Message) error

// Message is a broker-agnostic received message.
type Message interface {
	Body() []byte
	ID() string
	// Source is the topic, subject or subscription the message came from.
	Source() string
	Attributes() map[string]string
	Timestamp() time.Time
}

// Options are the consumer settings shared by every driver.
type Options struct {
	// Group is the Kafka consumer group, NSQ channel or NATS queue group.
	Group string
	// Concurrency is the number of handlers running in parallel (default 1).
	Concurrency int
	// MaxInFlight caps unacknowledged messages where the broker supports it.
	MaxInFlight int
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return 1
	}
	return o.Concurrency
}

// envelope adapts a broker message to Message and settles it exactly once.
type envelope struct {
	id     string
	source string
	body   []byte
	attrs  map[string]string
	ts     time.Time

	ack  func(context.Context) error
	nack func(context.Context) error

	settled atomic.Bool
}

func (e *envelope) Body() []byte                  { return e.body }
func (e *envelope) ID() string                    { return e.id }
func (e *envelope) Source() string                { return e.source }
func (e *envelope) Attributes() map[string]string { return e.attrs }
func (e *envelope) Timestamp() time.Time          { return e.ts }

func (e *envelope) settle(ctx context.Context, handlerErr error) error {
	if e.settled.Swap(true) {
		return nil
	}
	if handlerErr == nil {
		return e.ack(ctx)
	}
	return e.nack(ctx)
}

// deliver runs handler with panic recovery and settles the message.
func deliver(ctx context.Context, driver string, e *envelope, handler Handler) error {
	herr := callHandler(ctx, driver, e, handler)
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed, nacking",
			"driver", driver, "source", e.source, "message_id", e.id, "error", herr)
	}
	return e.settle(ctx, herr)
}

func callHandler(ctx context.Context, driver string, e *envelope, handler Handler) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, e)
}

func validate(ctx context.Context, source string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrSourceRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
