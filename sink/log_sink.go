package sink

import (
	"cam-relay/domain/event"
	"cam-relay/errors"
	"context"
	"log/slog"
)

// LogSink is the operator console: one log line per relay event.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (l LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ProgressUpdated:
		l.log.Debug("Progress", "source", evt.Source, "received", evt.Received, "expected", evt.Expected,
			"fraction", evt.Fraction)
	case event.StatusChanged:
		if evt.Err != nil {
			l.log.Warn(evt.Text(), "source", evt.Source, "kind", errors.Kind(evt.Err))
			return nil
		}
		l.log.Info(evt.Text(), "source", evt.Source)
	case event.FragmentsMissing:
		l.log.Warn("Fragments missing", "source", evt.Source, "missing", evt.Count, "first_missing", evt.Missing, "expected", evt.Expected)
	case event.ArtifactDecoded:
		a := evt.Artifact
		attrs := []any{"source", a.Source, "artifact", a.ID, "kind", a.Kind, "bytes", len(a.Bytes),
			"label", a.Metadata.Label, "confidence", a.Metadata.Confidence}
		if a.Image != nil {
			attrs = append(attrs, "format", a.Image.Format, "width", a.Image.Width, "height", a.Image.Height)
		}
		l.log.Info("Artifact decoded", attrs...)
	case event.DeviceSeen:
		l.log.Info("Device seen", "source", evt.Source, "client_id", evt.ClientID, "ip", evt.IP, "status", evt.Status)
	default:
		l.log.Debug("Unhandled event", "source", e.SourceID())
	}
	return nil
}
