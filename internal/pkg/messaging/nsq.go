package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// ErrNSQAddrsRequired is returned when no nsqd or lookupd address is configured.
var ErrNSQAddrsRequired = errors.New("messaging: nsq nsqd/lookupd addresses are required")

// NSQConfig configures the NSQ consumer. Lookupd addresses win over nsqd ones.
type NSQConfig struct {
	NSQDAddrs    []string
	LookupdAddrs []string
	// MaxAttempts stops redelivery after this many tries (0 keeps the go-nsq default).
	MaxAttempts uint16
	Options     Options
}

// NSQ consumes an NSQ topic through a channel (Options.Group).
type NSQ struct {
	cfg NSQConfig

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ validates cfg. Connections are opened by Consume.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if len(cfg.NSQDAddrs) == 0 && len(cfg.LookupdAddrs) == 0 {
		return nil, ErrNSQAddrsRequired
	}
	return &NSQ{cfg: cfg}, nil
}

// Consume blocks until ctx is done or the consumer stops.
func (n *NSQ) Consume(ctx context.Context, topic string, handler Handler) error {
	if err := validate(ctx, topic, handler); err != nil {
		return err
	}
	if n.cfg.Options.Group == "" {
		return ErrGroupRequired
	}

	concurrency := n.cfg.Options.concurrency()
	ccfg := nsq.NewConfig()
	ccfg.MaxInFlight = max(n.cfg.Options.MaxInFlight, concurrency)
	if n.cfg.MaxAttempts > 0 {
		ccfg.MaxAttempts = n.cfg.MaxAttempts
	}

	consumer, err := nsq.NewConsumer(topic, n.cfg.Options.Group, ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)

	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return deliver(ctx, DriverNSQ, nsqEnvelope(topic, m), handler)
	}), concurrency)

	if err := n.track(consumer); err != nil {
		stopNSQ(consumer)
		return err
	}

	if len(n.cfg.LookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.LookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.NSQDAddrs)
	}
	if err != nil {
		stopNSQ(consumer)
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		stopNSQ(consumer)
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func nsqEnvelope(topic string, m *nsq.Message) *envelope {
	return &envelope{
		id:     string(m.ID[:]),
		source: topic,
		body:   m.Body,
		ts:     time.Unix(0, m.Timestamp),
		ack: func(context.Context) error {
			m.Finish()
			return nil
		},
		nack: func(context.Context) error {
			// -1 lets go-nsq apply its backoff delay
			m.Requeue(-1)
			return nil
		},
	}
}

func stopNSQ(c *nsq.Consumer) {
	c.Stop()
	<-c.StopChan
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return io.ErrClosedPipe
	}
	n.consumers = append(n.consumers, c)
	return nil
}

// Close stops every consumer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		stopNSQ(c)
	}
	return nil
}
