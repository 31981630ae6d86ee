package workers

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"context"
	"log/slog"
)

var _ contract.Worker = (*IngestWorker)(nil)

// IngestWorker owns one shard of the inbound stream. Every source is routed to exactly
// one shard, so the messages of a source are handled serially and in delivery order.
type IngestWorker struct {
	shard   int
	inbound <-chan domain.InboundMessage
	handler contract.MessageHandler
	log     *slog.Logger
}

func NewIngestWorker(shard int, inbound <-chan domain.InboundMessage, handler contract.MessageHandler, log *slog.Logger) *IngestWorker {
	return &IngestWorker{
		shard:   shard,
		inbound: inbound,
		handler: handler,
		log:     log,
	}
}

func (w *IngestWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping ingest worker", "shard", w.shard)
			return ctx.Err()
		case msg, ok := <-w.inbound:
			if !ok {
				w.log.Debug("Inbound channel is closed", "shard", w.shard)
				return nil
			}
			if err := w.handler.Handle(ctx, msg); err != nil {
				w.log.Warn("Failed to handle message", "source", msg.Source, "shard", w.shard, "error", err)
			}
		}
	}
}
