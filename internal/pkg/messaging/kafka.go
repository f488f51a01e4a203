package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka consumer.
type KafkaConfig struct {
	Brokers []string
	Options Options
	// Dialer configures broker connections (TLS, SASL).
	Dialer *kafka.Dialer
}

// Kafka consumes a topic as a consumer group. Offsets are committed on ack only,
// so a nacked message is redelivered after a rebalance or restart.
type Kafka struct {
	cfg KafkaConfig

	mu      sync.Mutex
	readers []*kafka.Reader
	closed  bool
}

// NewKafka validates cfg. Connections are opened by Consume.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	cfg.Brokers = append([]string{}, cfg.Brokers...)
	return &Kafka{cfg: cfg}, nil
}

// Consume reads topic until ctx is done or the reader fails.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler) error {
	if err := validate(ctx, topic, handler); err != nil {
		return err
	}
	if k.cfg.Options.Group == "" {
		return ErrGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  k.cfg.Options.Group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.cfg.Dialer,
	})
	if err := k.track(reader); err != nil {
		return errors.Join(err, reader.Close())
	}
	defer k.untrack(reader)

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgCh := make(chan kafka.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(msgCh)
		for {
			m, err := reader.FetchMessage(consumeCtx)
			if err != nil {
				sendErr(errCh, err)
				return
			}
			select {
			case msgCh <- m:
			case <-consumeCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range k.cfg.Options.concurrency() {
		wg.Go(func() {
			for m := range msgCh {
				if err := deliver(consumeCtx, DriverKafka, kafkaEnvelope(reader, m), handler); err != nil {
					sendErr(errCh, fmt.Errorf("messaging: kafka commit: %w", err))
					cancel()
					return
				}
			}
		})
	}

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	wg.Wait()

	return errors.Join(err, reader.Close())
}

func kafkaEnvelope(reader *kafka.Reader, m kafka.Message) *envelope {
	var attrs map[string]string
	if len(m.Headers) > 0 {
		attrs = make(map[string]string, len(m.Headers))
		for _, h := range m.Headers {
			if _, ok := attrs[h.Key]; !ok {
				attrs[h.Key] = string(h.Value)
			}
		}
	}

	return &envelope{
		id:     fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		source: m.Topic,
		body:   m.Value,
		attrs:  attrs,
		ts:     m.Time,
		ack:    func(ctx context.Context) error { return reader.CommitMessages(ctx, m) },
		nack:   func(context.Context) error { return nil },
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func (k *Kafka) track(r *kafka.Reader) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return io.ErrClosedPipe
	}
	k.readers = append(k.readers, r)
	return nil
}

func (k *Kafka) untrack(r *kafka.Reader) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.readers {
		if k.readers[i] == r {
			k.readers = append(k.readers[:i], k.readers[i+1:]...)
			return
		}
	}
}

// Close closes every active reader, which ends their Consume calls.
func (k *Kafka) Close() error {
	k.mu.Lock()
	k.closed = true
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	var closeErr error
	for _, r := range readers {
		closeErr = errors.Join(closeErr, r.Close())
	}
	return closeErr
}
