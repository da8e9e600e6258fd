package pipeline

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/sensenrich/envelope"
)

// runFetchSubmit drains enrichQ, builds an ImageRequest per record, and
// submits it to the bounded fetch pool. Like runForwarder it uses a
// background context so a shutdown drains whatever enrichQ already holds
// rather than abandoning it; Submit's own semaphore acquisition is what
// applies backpressure during normal operation.
func (s *Supervisor) runFetchSubmit() {
	defer s.submitWG.Done()
	log := s.opts.Log
	ctx := context.Background()

	for {
		job, ok, err := s.enrichQ.Get(ctx)
		if err != nil {
			return
		}
		if !ok {
			return
		}

		sensorID, err := job.env.SensorID()
		if err != nil {
			log.Error("dropping enrich job: missing sensor.id", slog.Any("err", err))
			continue
		}
		timestamp, err := job.env.Timestamp()
		if err != nil {
			log.Error("dropping enrich job: missing @timestamp", slog.Any("err", err))
			continue
		}

		req, err := envelope.NewImageRequest(sensorID, timestamp)
		if err != nil {
			log.Error("dropping enrich job: bad timestamp",
				slog.String("sensor_id", sensorID), slog.Any("err", err))
			continue
		}

		if err := s.pool.Submit(ctx, job.env, req, job.objectType, sensorID); err != nil {
			log.Warn("dropped enrich job on shutdown", slog.Any("err", err))
		}
	}
}
