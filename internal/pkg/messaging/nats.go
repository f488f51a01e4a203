package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS consumer.
type NATSConfig struct {
	URL     string
	Options Options
	// ClientOptions are passed to nats.Connect.
	ClientOptions []nats.Option
}

// NATS consumes core NATS subjects, optionally as a queue group.
type NATS struct {
	conn *nats.Conn
	opts Options

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn, opts: cfg.Options}, nil
}

// Consume subscribes to subject and blocks until ctx is done.
func (n *NATS) Consume(ctx context.Context, subject string, handler Handler) error {
	if err := validate(ctx, subject, handler); err != nil {
		return err
	}

	concurrency := n.opts.concurrency()
	msgCh := make(chan *nats.Msg, concurrency)

	sub, err := n.conn.QueueSubscribe(subject, n.opts.Group, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // core NATS has no ack; JetStream errors are logged by the handler path
				_ = deliver(ctx, DriverNATS, natsEnvelope(m), handler)
			}
		})
	}

	stop := func() error {
		derr := sub.Drain()
		close(msgCh)
		wg.Wait()
		return derr
	}

	if err := n.track(sub); err != nil {
		return errors.Join(err, stop())
	}

	if err := n.conn.Flush(); err != nil {
		return errors.Join(fmt.Errorf("messaging: nats flush: %w", err), stop())
	}

	<-ctx.Done()
	return errors.Join(ctx.Err(), stop())
}

func natsEnvelope(m *nats.Msg) *envelope {
	var attrs map[string]string
	if len(m.Header) > 0 {
		attrs = make(map[string]string, len(m.Header))
		for k := range m.Header {
			attrs[k] = m.Header.Get(k)
		}
	}

	return &envelope{
		id:     m.Header.Get(nats.MsgIdHdr),
		source: m.Subject,
		body:   m.Data,
		attrs:  attrs,
		ts:     time.Now(),
		ack:    func(context.Context) error { return ignoreNoAck(m.Ack()) },
		nack:   func(context.Context) error { return ignoreNoAck(m.Nak()) },
	}
}

// ignoreNoAck hides the errors core NATS returns for messages without an ack subject.
func ignoreNoAck(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.subs = append(n.subs, sub)
	return nil
}

// Close drains subscriptions and the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	var closeErr error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
			closeErr = errors.Join(closeErr, err)
		}
	}

	closeErr = errors.Join(closeErr, n.conn.Drain())
	n.conn.Close()
	return closeErr
}
