package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// pollTimeout bounds each Poll call. A poll that returns nothing within
// this window yields (nil, nil) so the caller's loop can observe
// cancellation between polls.
const pollTimeout = 500 * time.Millisecond

// KafkaBroker adapts github.com/segmentio/kafka-go to the Broker
// interface. consumer_config/producer_config keys are forwarded verbatim
// from the [consumer_config]/[producer_config] INI sections (see
// config.Config).
type KafkaBroker struct {
	reader *kafka.Reader
	writer *kafka.Writer

	autoCommit bool

	mu      sync.Mutex
	pending *kafka.Message
}

// NewKafkaBroker builds a reader/writer pair from the forwarded config
// maps. consumerTopic binds the reader; publishers name their topic per
// Publish call. autoCommit comes from config.Config.AutoCommit so the
// enable.auto.commit string is parsed in exactly one place.
func NewKafkaBroker(consumerCfg, producerCfg map[string]string, consumerTopic string, autoCommit bool) (*KafkaBroker, error) {
	brokers := splitCSV(consumerCfg["bootstrap.servers"])
	if len(brokers) == 0 {
		return nil, fmt.Errorf("broker: consumer_config.bootstrap.servers is empty")
	}
	producerBrokers := splitCSV(producerCfg["bootstrap.servers"])
	if len(producerBrokers) == 0 {
		return nil, fmt.Errorf("broker: producer_config.bootstrap.servers is empty")
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       consumerTopic,
		GroupID:     consumerCfg["group.id"],
		StartOffset: startOffsetFor(consumerCfg["auto.offset.reset"]),
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	if !autoCommit {
		// CommitInterval 0 forces explicit CommitMessages calls.
		readerCfg.CommitInterval = 0
	} else {
		readerCfg.CommitInterval = time.Second
	}

	reader := kafka.NewReader(readerCfg)
	// The writer stays topic-less: kafka-go rejects a message that names
	// a topic when the writer already has one bound, and Publish takes
	// the topic per call.
	writer := &kafka.Writer{
		Addr:     kafka.TCP(producerBrokers...),
		Balancer: &kafka.Hash{},
	}

	return &KafkaBroker{reader: reader, writer: writer, autoCommit: autoCommit}, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func startOffsetFor(reset string) int64 {
	if strings.EqualFold(reset, "latest") {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

// Subscribe is a no-op for kafka-go: the reader is already bound to its
// topic at construction.
func (b *KafkaBroker) Subscribe(ctx context.Context, topics []string) error {
	return nil
}

// Poll fetches the next message, bounded by pollTimeout. Returns (nil,
// nil) when nothing arrived in time.
func (b *KafkaBroker) Poll(ctx context.Context) (*Record, error) {
	pctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	msg, err := b.reader.FetchMessage(pctx)
	if err != nil {
		if pctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("broker: fetch: %w", err)
	}
	b.mu.Lock()
	b.pending = &msg
	b.mu.Unlock()
	return &Record{Key: msg.Key, Value: msg.Value, Offset: msg.Offset}, nil
}

// commitPending commits the most recently fetched message when
// auto-commit is disabled. Poll writes pending from the consumer worker
// while Progress reads it from the forwarder workers, hence the lock.
func (b *KafkaBroker) commitPending(ctx context.Context) error {
	if b.autoCommit {
		return nil
	}
	b.mu.Lock()
	msg := b.pending
	b.pending = nil
	b.mu.Unlock()
	if msg == nil {
		return nil
	}
	return b.reader.CommitMessages(ctx, *msg)
}

// Publish writes one message to topic under key.
func (b *KafkaBroker) Publish(ctx context.Context, topic string, key, value []byte) error {
	return b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Progress advances offset-commit state. kafka-go's WriteMessages is
// itself synchronous, so there is no producer buffer to tick; only the
// manual-commit case does work.
func (b *KafkaBroker) Progress(ctx context.Context) error {
	return b.commitPending(ctx)
}

// Close commits the pending message (when auto-commit is disabled), then
// shuts down both reader and writer, returning the first error.
func (b *KafkaBroker) Close() error {
	cerr := b.commitPending(context.Background())
	rerr := b.reader.Close()
	werr := b.writer.Close()
	if cerr != nil {
		return cerr
	}
	if rerr != nil {
		return rerr
	}
	return werr
}
