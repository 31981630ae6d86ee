package sink

import (
	"cam-relay/domain/event"
	"cam-relay/infrastructure/storage"
	"context"
	"log/slog"
	"sync/atomic"
)

const pruneEvery = 50

// CaptureSink persists decoded artifacts. When retention is positive, older captures
// are pruned every pruneEvery stores.
type CaptureSink struct {
	repository storage.ICaptureRepository
	log        *slog.Logger
	retention  int
	stored     atomic.Int64
}

func NewCaptureSink(repository storage.ICaptureRepository, log *slog.Logger, retention int) *CaptureSink {
	return &CaptureSink{repository: repository, log: log, retention: retention}
}

func (c *CaptureSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.ArtifactDecoded)
	if !ok {
		return nil
	}
	if err := c.repository.Store(storage.ToCapture(evt.Artifact)); err != nil {
		return err
	}

	if c.retention > 0 && c.stored.Add(1)%pruneEvery == 0 {
		removed, err := c.repository.Prune(c.retention)
		if err != nil {
			c.log.Warn("Failed to prune captures", "error", err)
		} else if removed > 0 {
			c.log.Debug("Captures pruned", "removed", removed)
		}
	}
	return nil
}
