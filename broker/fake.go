package broker

import (
	"context"
	"sync"
	"time"
)

// FakeBroker is an in-memory Broker used by pipeline tests in place of a
// real Kafka cluster.
type FakeBroker struct {
	mu        sync.Mutex
	inbound   []Record
	published []PublishedMessage
	gate      chan struct{}
	closed    bool
}

// PublishedMessage records one Publish call for assertions in tests.
type PublishedMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// NewFakeBroker returns an empty FakeBroker.
func NewFakeBroker() *FakeBroker {
	return &FakeBroker{}
}

// Enqueue appends a record Poll will later return, in order.
func (f *FakeBroker) Enqueue(r Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, r)
}

// Subscribe is a no-op.
func (f *FakeBroker) Subscribe(ctx context.Context, topics []string) error {
	return nil
}

// Poll returns the next enqueued record, or (nil, nil) if empty. The
// empty case waits briefly, standing in for a real broker's bounded
// poll timeout so caller loops do not spin.
func (f *FakeBroker) Poll(ctx context.Context) (*Record, error) {
	f.mu.Lock()
	if len(f.inbound) == 0 {
		f.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return nil, nil
	}
	r := f.inbound[0]
	f.inbound = f.inbound[1:]
	f.mu.Unlock()
	return &r, nil
}

// Publish records the message for later inspection. While a HoldPublish
// gate is in place, Publish blocks until ReleasePublish, simulating a
// stalled downstream broker for backpressure tests.
func (f *FakeBroker) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, PublishedMessage{Topic: topic, Key: key, Value: value})
	return nil
}

// HoldPublish makes subsequent Publish calls block until ReleasePublish.
func (f *FakeBroker) HoldPublish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// ReleasePublish unblocks all held and future Publish calls.
func (f *FakeBroker) ReleasePublish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Pending returns how many enqueued records Poll has not yet handed out.
func (f *FakeBroker) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inbound)
}

// Progress is a no-op.
func (f *FakeBroker) Progress(ctx context.Context) error {
	return nil
}

// Close marks the broker closed.
func (f *FakeBroker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Published returns a snapshot of everything published so far.
func (f *FakeBroker) Published() []PublishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PublishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

// Closed reports whether Close was called.
func (f *FakeBroker) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
