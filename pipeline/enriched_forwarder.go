package pipeline

import (
	"context"
	"log/slog"
)

// runEnrichedForwarder drains enrichedQ, serializes each envelope, and
// publishes it keyed by sensor id.
func (s *Supervisor) runEnrichedForwarder() {
	defer s.enrichedWG.Done()
	log := s.opts.Log
	ctx := context.Background()

	for {
		env, ok, err := s.enrichedQ.Get(ctx)
		if err != nil {
			return
		}
		if !ok {
			return
		}

		sensorID, err := env.SensorID()
		if err != nil {
			log.Error("dropping enriched record: missing sensor.id", slog.Any("err", err))
			continue
		}
		value, err := env.Bytes()
		if err != nil {
			log.Error("dropping enriched record: serialize failure",
				slog.String("sensor_id", sensorID), slog.Any("err", err))
			continue
		}

		if err := s.broker.Publish(ctx, s.opts.ProducerTopic, []byte(sensorID), value); err != nil {
			log.Error("enriched publish failed", slog.String("sensor_id", sensorID), slog.Any("err", err))
			continue
		}
		if err := s.broker.Progress(ctx); err != nil {
			log.Warn("broker progress call failed", slog.Any("err", err))
		}
	}
}
