package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/sensenrich/idgen"
)

// Start subscribes the broker and launches the four workers. Workers
// begin running immediately; State() becomes Running before Start
// returns.
func (s *Supervisor) Start(ctx context.Context) error {
	if State(s.state.Load()) != Constructed {
		return fmt.Errorf("pipeline: Start called in state %s", s.State())
	}

	instanceID := s.opts.InstanceID
	if instanceID == "" {
		instanceID = idgen.New()
	} else if _, err := idgen.Parse(instanceID); err != nil {
		return fmt.Errorf("pipeline: instance id: %w", err)
	}
	log := s.opts.Log.With(slog.String("instance_id", instanceID))
	s.opts.Log = log

	if err := s.broker.Subscribe(ctx, []string{s.opts.ConsumerTopic}); err != nil {
		return fmt.Errorf("pipeline: subscribe: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.consumerWG.Add(1)
	go s.runConsumer(runCtx)

	s.forwardWG.Add(1)
	go s.runForwarder()

	s.submitWG.Add(1)
	go s.runFetchSubmit()

	s.enrichedWG.Add(1)
	go s.runEnrichedForwarder()

	s.state.Store(int32(Running))
	log.Info("pipeline started",
		slog.String("consumer_topic", s.opts.ConsumerTopic),
		slog.String("producer_topic", s.opts.ProducerTopic),
	)
	return nil
}

// Close drives the pipeline through Draining to Closed. The consumer is
// stopped first so no new work enters the queues, then each stage is
// drained in the order data flows through it, so that by the time a
// later stage is told to stop, nothing can still be arriving for it.
func (s *Supervisor) Close() error {
	if State(s.state.Load()) == Closed {
		return nil
	}
	s.state.Store(int32(Draining))
	log := s.opts.Log

	// Stop accepting new broker records.
	if s.cancel != nil {
		s.cancel()
	}
	s.consumerWG.Wait()

	// forward_q and enrich_q have no more producers now; close them so
	// their drain loops exit once empty instead of blocking forever.
	s.forwardQ.Close()
	s.enrichQ.Close()

	s.forwardWG.Wait()
	s.submitWG.Wait()

	// Every accepted enrich job has now been submitted to the pool;
	// wait for in-flight HTTP fetches to finish before closing
	// enriched_q, so the pool's own goroutines never push to a closed
	// channel.
	s.pool.Drain()
	s.enrichedQ.Close()
	s.enrichedWG.Wait()

	if err := s.broker.Close(); err != nil {
		log.Error("broker close failed", slog.Any("err", err))
		return fmt.Errorf("pipeline: broker close: %w", err)
	}

	s.state.Store(int32(Closed))
	log.Info("pipeline closed")
	return nil
}
