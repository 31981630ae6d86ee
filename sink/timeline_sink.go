package sink

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"context"
	"sync"
	"time"
)

// SourceView is what an operator display shows for one source.
type SourceView struct {
	Status       string
	Progress     float64
	LastLabel    string
	LastArtifact time.Time
	Decoded      int
	Failures     int
}

// Timeline holds the latest view of every source.
type Timeline struct {
	mu      sync.RWMutex
	sources map[domain.SourceID]SourceView
}

func NewTimeline() *Timeline {
	return &Timeline{sources: make(map[domain.SourceID]SourceView)}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	view := t.sources[e.SourceID()]
	switch evt := e.(type) {
	case event.ProgressUpdated:
		view.Progress = evt.Fraction
	case event.StatusChanged:
		view.Status = evt.Text()
		if evt.Status == domain.StatusError {
			view.Failures++
		}
	case event.ArtifactDecoded:
		view.Decoded++
		view.LastLabel = evt.Artifact.Metadata.Label
		view.LastArtifact = evt.Artifact.DecodedAt
	default:
		return nil
	}
	t.sources[e.SourceID()] = view
	return nil
}

func (t *Timeline) View(source domain.SourceID) (SourceView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	view, ok := t.sources[source]
	return view, ok
}

// Snapshot returns a copy keyed by source, for the debug server.
func (t *Timeline) Snapshot() map[string]SourceView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make(map[string]SourceView, len(t.sources))
	for source, view := range t.sources {
		res[string(source)] = view
	}
	return res
}
