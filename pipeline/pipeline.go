// Package pipeline wires the four long-lived workers and three bounded
// queues of one stream-enrichment instance into a Supervisor:
//
//	broker → Consumer ─┬─► forwardQ ─────────────► Forwarder ─► broker
//	                   └─► enrichQ ─► fetch pool ─► enrichedQ ─► EnrichedForwarder ─► broker
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/sensenrich/broker"
	"github.com/hazyhaar/sensenrich/envelope"
	"github.com/hazyhaar/sensenrich/fetchpool"
	"github.com/hazyhaar/sensenrich/queue"
)

// Default queue capacities.
const (
	DefaultForwardQSize  = 100000
	DefaultEnrichQSize   = 1000
	DefaultEnrichedQSize = 1000
	// DefaultFetchConcurrency caps simultaneous outbound HTTP image
	// requests.
	DefaultFetchConcurrency = 8
)

// State is one point in the pipeline's Constructed→Running→Draining→Closed
// lifecycle. Transitions are one-way; there is no restart.
type State int32

const (
	Constructed State = iota
	Running
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Options configures one pipeline instance.
type Options struct {
	ConsumerTopic string
	ProducerTopic string

	// IsDesired reports whether an objectType triggers enrichment.
	IsDesired func(objectType string) bool

	ForwardQSize     int
	EnrichQSize      int
	EnrichedQSize    int
	FetchConcurrency int

	// InstanceID overrides the generated per-instance id carried on every
	// log line. When set it must be a valid UUID; Start rejects anything
	// else.
	InstanceID string
	Log        *slog.Logger
}

func (o *Options) setDefaults() {
	if o.ForwardQSize == 0 {
		o.ForwardQSize = DefaultForwardQSize
	}
	if o.EnrichQSize == 0 {
		o.EnrichQSize = DefaultEnrichQSize
	}
	if o.EnrichedQSize == 0 {
		o.EnrichedQSize = DefaultEnrichedQSize
	}
	if o.FetchConcurrency == 0 {
		o.FetchConcurrency = DefaultFetchConcurrency
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
}

// Supervisor owns the queues, the Fetcher pool, and the four workers for
// one pipeline instance. Construct one per process; there is no restart.
type Supervisor struct {
	opts   Options
	broker broker.Broker
	pool   *fetchpool.Pool

	forwardQ  *queue.Queue[broker.Record]
	enrichQ   *queue.Queue[enrichJob]
	enrichedQ *queue.Queue[envelope.Envelope]

	state atomic.Int32

	cancel     context.CancelFunc
	consumerWG sync.WaitGroup
	forwardWG  sync.WaitGroup
	submitWG   sync.WaitGroup
	enrichedWG sync.WaitGroup
}

// enrichJob is what the consumer hands the fetch submission loop: the
// parsed envelope plus its objectType, so the submit loop never reparses
// the record.
type enrichJob struct {
	env        envelope.Envelope
	objectType string
}

// New constructs a pipeline instance in the Constructed state. It does
// not start any workers; call Start for that.
func New(b broker.Broker, fetcher fetchpool.Fetcher, opts Options) *Supervisor {
	opts.setDefaults()
	s := &Supervisor{
		opts:   opts,
		broker: b,
	}
	s.forwardQ = queue.New[broker.Record](opts.ForwardQSize)
	s.enrichQ = queue.New[enrichJob](opts.EnrichQSize)
	s.enrichedQ = queue.New[envelope.Envelope](opts.EnrichedQSize)
	s.pool = fetchpool.New(fetcher, opts.FetchConcurrency, s.enrichedQ, opts.Log)
	return s
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// ForwardQDepth, EnrichQDepth, and EnrichedQDepth expose queue depth
// gauges an external collaborator may poll. The core attaches no metrics
// library to them.
func (s *Supervisor) ForwardQDepth() int  { return s.forwardQ.Depth() }
func (s *Supervisor) EnrichQDepth() int   { return s.enrichQ.Depth() }
func (s *Supervisor) EnrichedQDepth() int { return s.enrichedQ.Depth() }
