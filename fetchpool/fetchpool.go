// Package fetchpool bounds the pipeline's concurrent image fetches.
//
// Rather than tracking in-flight requests in a shared map read by a
// separate await loop, each accepted record is handed to a goroutine
// that owns it end to end and pushes the enriched result straight to
// the enriched queue. Completion-order delivery and backpressure both
// fall out of this without any shared mutable state beyond the
// semaphore.
package fetchpool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/sensenrich/envelope"
	"github.com/hazyhaar/sensenrich/queue"
)

// Fetcher performs one image lookup. imageclient.Client satisfies this.
type Fetcher interface {
	Fetch(ctx context.Context, req envelope.ImageRequest) (string, error)
}

// Pool bounds the number of concurrent in-flight HTTP image requests.
// The semaphore is acquired synchronously inside Submit, before the
// worker goroutine is spawned: this is what makes Submit a blocking
// call when the pool is saturated, propagating backpressure to the
// enrich queue and from there to the consumer.
type Pool struct {
	client    Fetcher
	sem       chan struct{}
	wg        sync.WaitGroup
	enrichedQ *queue.Queue[envelope.Envelope]
	log       *slog.Logger
}

// New returns a Pool bounded to concurrency simultaneous HTTP requests.
// The bound exists specifically to cap outbound load on the image
// service.
func New(client Fetcher, concurrency int, enrichedQ *queue.Queue[envelope.Envelope], log *slog.Logger) *Pool {
	return &Pool{
		client:    client,
		sem:       make(chan struct{}, concurrency),
		enrichedQ: enrichedQ,
		log:       log,
	}
}

// Submit blocks until a pool slot is free (or ctx is cancelled), then
// spawns a goroutine that fetches the image for req, re-buffers env
// under objectType, and pushes the result to enrichedQ. On any fetch
// error the record is logged and dropped, never retried.
func (p *Pool) Submit(ctx context.Context, env envelope.Envelope, req envelope.ImageRequest, objectType, sensorID string) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		p.run(ctx, env, req, objectType, sensorID)
	}()
	return nil
}

func (p *Pool) run(ctx context.Context, env envelope.Envelope, req envelope.ImageRequest, objectType, sensorID string) {
	image, err := p.client.Fetch(ctx, req)
	if err != nil {
		p.log.Error("image fetch failed",
			slog.String("sensor_id", sensorID),
			slog.Int64("time_sec", req.TimeSec),
			slog.Int64("fraction", req.Fraction),
			slog.Any("err", err),
		)
		return
	}

	enriched, err := env.SetBuffer(objectType, image)
	if err != nil {
		p.log.Error("failed to set enrichment buffer",
			slog.String("sensor_id", sensorID),
			slog.Any("err", err),
		)
		return
	}

	if err := p.enrichedQ.Put(ctx, enriched); err != nil {
		p.log.Warn("dropped enriched record on shutdown",
			slog.String("sensor_id", sensorID),
			slog.Any("err", err),
		)
	}
}

// Drain blocks until every in-flight fetch has completed, so no worker
// goroutine remains live once the pipeline reports Closed.
func (p *Pool) Drain() {
	p.wg.Wait()
}
