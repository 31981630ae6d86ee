package services

import (
	"bytes"
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// maxReportedMissing bounds the missing indices carried by logs and events. The full
// count is always reported.
const maxReportedMissing = 32

// TransferAssembler reassembles chunked transfers, one session per source.
// The registry map is guarded by mu, each session by its own mutex, so sources never
// contend with each other and the reaper can run concurrently with ingestion.
type TransferAssembler struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[domain.SourceID]*domain.TransferSession
	events   chan<- event.DomainEvent
	now      func() time.Time
}

func NewTransferAssembler(log *slog.Logger, events chan<- event.DomainEvent) *TransferAssembler {
	return &TransferAssembler{
		log:      log,
		sessions: make(map[domain.SourceID]*domain.TransferSession),
		events:   events,
		now:      time.Now,
	}
}

// OnStart (re)initializes the session of source. A transfer already in progress is
// discarded: the most recent start always wins.
func (a *TransferAssembler) OnStart(source domain.SourceID, totalSize int64, totalChunks int) {
	if totalChunks < 0 {
		totalChunks = 0
	}
	if totalSize < 0 {
		totalSize = 0
	}
	now := a.now()
	session := domain.NewTransferSession(source, totalSize, totalChunks, now)

	a.mu.Lock()
	previous, replaced := a.sessions[source]
	a.sessions[source] = session
	a.mu.Unlock()

	if replaced {
		previous.Mu.Lock()
		dropped := previous.Received()
		previous.State = domain.SessionAborted
		previous.Mu.Unlock()
		a.log.Info("Restarting transfer, previous fragments discarded", "source", source, "dropped", dropped)
	}

	a.log.Debug("Transfer started", "source", source, "size", totalSize, "chunks", totalChunks)
	a.emit(event.StatusChanged{Source: source, Status: domain.StatusReceiving, At: now})
	a.emit(event.ProgressUpdated{Source: source, Fraction: 0, Expected: totalChunks, At: now})
}

// OnFragment stores data at index, overwriting any earlier fragment with the same index.
func (a *TransferAssembler) OnFragment(source domain.SourceID, index int, data []byte) error {
	session, ok := a.session(source)
	if !ok {
		return fmt.Errorf("%w: no transfer for %s", errors.ErrFragmentOutsideSession, source)
	}

	session.Mu.Lock()
	if session.State != domain.SessionReceiving {
		session.Mu.Unlock()
		return fmt.Errorf("%w: transfer for %s is %s", errors.ErrFragmentOutsideSession, source, session.State)
	}
	now := a.now()
	session.Chunks[index] = data
	session.LastActivity = now
	progress := event.ProgressUpdated{
		Source:   source,
		Fraction: session.Progress(),
		Received: session.Received(),
		Expected: session.TotalChunks,
		At:       now,
	}
	session.Mu.Unlock()

	a.emit(progress)
	return nil
}

// OnEnd concatenates the fragments 0..TotalChunks-1 in index order, skipping the missing
// ones, and removes the session. Missing fragments are reported but never fatal.
// Work is proportional to the fragments received, never to the declared count.
func (a *TransferAssembler) OnEnd(source domain.SourceID) (domain.AssembledTransfer, error) {
	a.mu.Lock()
	session, ok := a.sessions[source]
	if ok {
		delete(a.sessions, source)
	}
	a.mu.Unlock()

	if !ok {
		return domain.AssembledTransfer{}, fmt.Errorf("%w: end marker without transfer for %s", errors.ErrFragmentOutsideSession, source)
	}

	session.Mu.Lock()
	if session.State != domain.SessionReceiving {
		state := session.State
		session.Mu.Unlock()
		return domain.AssembledTransfer{}, fmt.Errorf("%w: transfer for %s is %s", errors.ErrFragmentOutsideSession, source, state)
	}
	present := lo.Filter(lo.Keys(session.Chunks), func(i int, _ int) bool { return i < session.TotalChunks })
	slices.Sort(present)
	var buf bytes.Buffer
	for _, i := range present {
		buf.Write(session.Chunks[i])
	}
	session.State = domain.SessionCompleted
	assembled := domain.AssembledTransfer{
		Source:       source,
		Payload:      buf.Bytes(),
		Missing:      missingIndices(present, session.TotalChunks, maxReportedMissing),
		MissingCount: session.TotalChunks - len(present),
		TotalSize:    session.TotalSize,
		TotalChunks:  session.TotalChunks,
	}
	session.Mu.Unlock()

	now := a.now()
	if assembled.MissingCount > 0 {
		a.log.Warn("Transfer completed with missing fragments",
			"source", source, "missing", assembled.MissingCount, "first_missing", assembled.Missing,
			"expected", assembled.TotalChunks, "error", errors.ErrMissingFragments)
		a.emit(event.FragmentsMissing{
			Source:   source,
			Missing:  assembled.Missing,
			Count:    assembled.MissingCount,
			Expected: assembled.TotalChunks,
			At:       now,
		})
	}

	if len(assembled.Payload) == 0 {
		a.emit(event.StatusChanged{Source: source, Status: domain.StatusError, Err: errors.ErrEmptyAssembledBuffer, At: now})
		return assembled, fmt.Errorf("%w: %d fragments declared for %s", errors.ErrEmptyAssembledBuffer, assembled.TotalChunks, source)
	}

	a.log.Debug("Transfer assembled", "source", source, "bytes", len(assembled.Payload), "declared_size", assembled.TotalSize)
	return assembled, nil
}

// Abort discards the session of source, if any, and reports reason as an error status.
func (a *TransferAssembler) Abort(source domain.SourceID, reason error) bool {
	return a.abort(source, nil, reason)
}

// abort removes the session of source. When expected is set, a session that was
// replaced in the meantime by a new start marker is left alone.
func (a *TransferAssembler) abort(source domain.SourceID, expected *domain.TransferSession, reason error) bool {
	a.mu.Lock()
	session, ok := a.sessions[source]
	if ok && expected != nil && session != expected {
		ok = false
	}
	if ok {
		delete(a.sessions, source)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}

	session.Mu.Lock()
	session.State = domain.SessionAborted
	session.Mu.Unlock()

	a.log.Warn("Transfer aborted", "source", source, "reason", reason)
	a.emit(event.StatusChanged{Source: source, Status: domain.StatusError, Err: reason, At: a.now()})
	return true
}

// Reap aborts every session without activity for longer than maxIdle.
func (a *TransferAssembler) Reap(maxIdle time.Duration) []domain.SourceID {
	now := a.now()

	a.mu.RLock()
	expired := lo.PickBy(a.sessions, func(_ domain.SourceID, s *domain.TransferSession) bool {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		return now.Sub(s.LastActivity) > maxIdle
	})
	a.mu.RUnlock()

	reaped := make([]domain.SourceID, 0, len(expired))
	for source, session := range expired {
		if a.abort(source, session, errors.ErrSessionExpired) {
			reaped = append(reaped, source)
		}
	}
	return reaped
}

// ActiveSessions returns the number of transfers currently receiving.
func (a *TransferAssembler) ActiveSessions() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// State returns the state of the session of source, SessionIdle when there is none.
func (a *TransferAssembler) State(source domain.SourceID) domain.SessionState {
	session, ok := a.session(source)
	if !ok {
		return domain.SessionIdle
	}
	session.Mu.Lock()
	defer session.Mu.Unlock()
	return session.State
}

func (a *TransferAssembler) session(source domain.SourceID) (*domain.TransferSession, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	session, ok := a.sessions[source]
	return session, ok
}

func (a *TransferAssembler) emit(e event.DomainEvent) {
	if a.events == nil {
		return
	}
	select {
	case a.events <- e:
	default:
		a.log.Debug("Event channel full, dropping event", "source", e.SourceID())
	}
}

// missingIndices lists up to limit indices in [0,total) absent from the sorted present slice.
func missingIndices(present []int, total, limit int) []int {
	var missing []int
	next := 0
	for _, idx := range append(slices.Clone(present), total) {
		for ; next < idx && len(missing) < limit; next++ {
			missing = append(missing, next)
		}
		if len(missing) >= limit {
			break
		}
		next = idx + 1
	}
	return missing
}
