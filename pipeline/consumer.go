package pipeline

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/sensenrich/broker"
	"github.com/hazyhaar/sensenrich/envelope"
)

// runConsumer polls the broker, classifies each record, and routes it to
// forwardQ or enrichQ. It runs until ctx is cancelled.
func (s *Supervisor) runConsumer(ctx context.Context) {
	defer s.consumerWG.Done()
	log := s.opts.Log

	for {
		if ctx.Err() != nil {
			return
		}

		rec, err := s.broker.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("broker poll error", slog.Any("err", err))
			continue
		}
		if rec == nil {
			log.Warn("poll returned no record")
			continue
		}
		if rec.Err != nil {
			log.Error("broker reported record error", slog.Any("err", rec.Err))
			continue
		}

		s.classifyAndRoute(ctx, *rec)
	}
}

func (s *Supervisor) classifyAndRoute(ctx context.Context, rec broker.Record) {
	log := s.opts.Log

	if envelope.IsHeartbeat(rec.Value) {
		if err := s.forwardQ.Put(ctx, rec); err != nil {
			log.Warn("dropped heartbeat on shutdown", slog.Any("err", err))
		}
		return
	}

	env, err := envelope.Parse(rec.Value)
	if err != nil {
		log.Error("dropping record: parse failure", slog.Any("err", err))
		return
	}

	objectType, err := env.ObjectType()
	if err != nil {
		log.Error("dropping record: missing objectType", slog.Any("err", err))
		return
	}

	if !s.opts.IsDesired(objectType) {
		if err := s.forwardQ.Put(ctx, rec); err != nil {
			log.Warn("dropped record on shutdown", slog.Any("err", err))
		}
		return
	}

	job := enrichJob{env: env, objectType: objectType}
	if err := s.enrichQ.Put(ctx, job); err != nil {
		log.Warn("dropped record on shutdown", slog.Any("err", err))
		return
	}

	objectID, _ := env.ObjectID()
	log.Info("enqueued record for enrichment",
		slog.String("object_id", objectID),
		slog.Int("enrich_q_depth", s.enrichQ.Depth()),
	)
}
