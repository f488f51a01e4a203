package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when neither a client nor a project id is given.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub consumer.
type PubSubConfig struct {
	ProjectID     string
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
	Options       Options
}

// PubSub consumes a Pub/Sub subscription; the Consume source is the subscription id.
type PubSub struct {
	client *pubsub.Client
	opts   Options

	mu     sync.Mutex
	closed bool
}

// NewPubSub creates the client unless cfg carries one.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.Client != nil {
		return &PubSub{client: cfg.Client, opts: cfg.Options}, nil
	}
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}
	return &PubSub{client: c, opts: cfg.Options}, nil
}

// Consume receives from subscription until ctx is done.
func (p *PubSub) Consume(ctx context.Context, subscription string, handler Handler) error {
	if err := validate(ctx, subscription, handler); err != nil {
		return err
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = p.opts.concurrency()
	if p.opts.MaxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = p.opts.MaxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		//nolint:errcheck // Ack and Nack on pubsub.Message cannot fail
		_ = deliver(ctx, DriverGooglePubSub, &envelope{
			id:     m.ID,
			source: subscription,
			body:   m.Data,
			attrs:  m.Attributes,
			ts:     m.PublishTime,
			ack: func(context.Context) error {
				m.Ack()
				return nil
			},
			nack: func(context.Context) error {
				m.Nack()
				return nil
			},
		}, handler)
	})
}

// Close closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}
