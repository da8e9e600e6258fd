package pipeline

import (
	"context"
	"log/slog"
)

// runForwarder drains forwardQ and publishes each record with its
// original key and value bytes unchanged. It runs with a background
// context so it keeps draining whatever was queued before shutdown; it
// exits once forwardQ is closed and empty.
func (s *Supervisor) runForwarder() {
	defer s.forwardWG.Done()
	log := s.opts.Log
	ctx := context.Background()

	for {
		rec, ok, err := s.forwardQ.Get(ctx)
		if err != nil {
			return
		}
		if !ok {
			return
		}

		if err := s.broker.Publish(ctx, s.opts.ProducerTopic, rec.Key, rec.Value); err != nil {
			log.Error("forward publish failed", slog.Any("err", err))
			continue
		}
		if err := s.broker.Progress(ctx); err != nil {
			log.Warn("broker progress call failed", slog.Any("err", err))
		}
	}
}
