// Package broker abstracts the message broker as a small consume/publish
// contract. The pipeline depends only on this interface; production
// wiring uses KafkaBroker, tests use FakeBroker.
package broker

import "context"

// Record is an opaque inbound message.
type Record struct {
	Key   []byte
	Value []byte
	// Offset identifies the record for acknowledgement purposes only;
	// the pipeline never inspects its structure.
	Offset int64
	// Err carries a broker-reported error state for this record, if any.
	Err error
}

// Broker is the abstract operation set the pipeline core depends on.
type Broker interface {
	// Subscribe registers the consumer side for the given topics.
	Subscribe(ctx context.Context, topics []string) error

	// Poll blocks up to the broker's own internal timeout and returns the
	// next available record, or (nil, nil) if none arrived in time.
	Poll(ctx context.Context) (*Record, error)

	// Publish writes value to topic under key. A nil key is permitted.
	Publish(ctx context.Context, topic string, key, value []byte) error

	// Progress advances the producer's internal buffers without blocking
	// for an acknowledgement; callers use it as a non-blocking flush tick.
	Progress(ctx context.Context) error

	// Close releases the broker's resources: unsubscribes, commits any
	// pending consumer offsets, and flushes the producer.
	Close() error
}
