package workers

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var _ contract.Worker = (*DecodeWorker)(nil)

// DecodeWorker runs the decode pipeline off the delivery path. Results are handed to the
// events channel without blocking: when the consumers are slow, results are dropped.
type DecodeWorker struct {
	jobs    <-chan domain.DecodeJob
	events  chan<- event.DomainEvent
	decoder contract.Decoder
	log     *slog.Logger
	now     func() time.Time
}

func NewDecodeWorker(jobs <-chan domain.DecodeJob, events chan<- event.DomainEvent, decoder contract.Decoder, log *slog.Logger) *DecodeWorker {
	return &DecodeWorker{
		jobs:    jobs,
		events:  events,
		decoder: decoder,
		log:     log,
		now:     time.Now,
	}
}

func (w *DecodeWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping decode worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Job channel is closed")
				return nil
			}
			w.publish(w.process(job))
		}
	}
}

func (w *DecodeWorker) process(job domain.DecodeJob) event.DomainEvent {
	started := w.now()
	decoded, err := w.decoder.Decode(job.Payload)
	if err != nil {
		w.log.Warn("Decode failed", "source", job.Source, "job", job.ID, "kind", errors.Kind(err), "error", err)
		return event.StatusChanged{Source: job.Source, Status: domain.StatusError, Err: err, At: w.now()}
	}

	artifact := domain.Artifact{
		ID:        uuid.New(),
		Source:    job.Source,
		Bytes:     decoded.Bytes,
		Kind:      decoded.Kind,
		Image:     decoded.Image,
		Metadata:  job.Metadata,
		DecodedAt: w.now(),
	}
	w.log.Debug("Payload decoded",
		"source", job.Source, "artifact", artifact.ID, "bytes", len(artifact.Bytes),
		"kind", artifact.Kind, "took", artifact.DecodedAt.Sub(started))
	return event.ArtifactDecoded{JobID: job.ID, Artifact: artifact}
}

func (w *DecodeWorker) publish(e event.DomainEvent) {
	select {
	case w.events <- e:
	default:
		w.log.Warn("Event channel full, decode result lost", "source", e.SourceID())
	}
}
