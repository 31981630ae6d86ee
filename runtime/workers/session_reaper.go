package workers

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*SessionReaper)(nil)

// Reaper is implemented by the transfer assembler.
type Reaper interface {
	Reap(maxIdle time.Duration) []domain.SourceID
	ActiveSessions() int
}

// SessionReaper aborts transfers that started but never received their end marker.
type SessionReaper struct {
	reaper   Reaper
	log      *slog.Logger
	interval time.Duration
	ttl      time.Duration
}

func NewSessionReaper(reaper Reaper, log *slog.Logger, interval, ttl time.Duration) *SessionReaper {
	return &SessionReaper{
		reaper:   reaper,
		log:      log,
		interval: interval,
		ttl:      ttl,
	}
}

// Run start a loop that checks the session registry every interval.
func (w *SessionReaper) Run(ctx context.Context) error {
	w.log.Debug("Starting session reaper", "interval", w.interval, "ttl", w.ttl)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopping session reaper")
			return ctx.Err()
		case <-ticker.C:
			reaped := w.reaper.Reap(w.ttl)
			if len(reaped) == 0 {
				continue
			}
			w.log.Warn("Expired transfers aborted", "sources", reaped, "remaining", w.reaper.ActiveSessions())
		}
	}
}
