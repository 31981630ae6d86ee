package services

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const source = domain.SourceID("esp32/cam/image")

func newTestAssembler() (*TransferAssembler, chan event.DomainEvent) {
	events := make(chan event.DomainEvent, 256)
	return NewTransferAssembler(slog.New(slog.NewTextHandler(io.Discard, nil)), events), events
}

func drain(events chan event.DomainEvent) []event.DomainEvent {
	var res []event.DomainEvent
	for {
		select {
		case e := <-events:
			res = append(res, e)
		default:
			return res
		}
	}
}

func last[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[len(items)-1], true
}

func deliver(t *testing.T, a *TransferAssembler, fragments []string, order []int) []byte {
	a.OnStart(source, 0, len(fragments))
	for _, i := range order {
		require.NoError(t, a.OnFragment(source, i, []byte(fragments[i])))
	}
	assembled, err := a.OnEnd(source)
	require.NoError(t, err)
	return assembled.Payload
}

func TestTransferAssembler_EndToEndScenario(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 900, 3)
	req.NoError(a.OnFragment(source, 1, []byte("<b64-2>")))
	req.NoError(a.OnFragment(source, 0, []byte("<b64-1>")))
	req.NoError(a.OnFragment(source, 2, []byte("<b64-3>")))
	assembled, err := a.OnEnd(source)

	req.NoError(err)
	req.Equal("<b64-1><b64-2><b64-3>", string(assembled.Payload))
	req.Empty(assembled.Missing)
	req.Equal(int64(900), assembled.TotalSize)
	req.Equal(domain.SessionIdle, a.State(source))
	req.Zero(a.ActiveSessions())

	progress := lo.FilterMap(drain(events), func(e event.DomainEvent, _ int) (float64, bool) {
		p, ok := e.(event.ProgressUpdated)
		return p.Fraction, ok
	})
	req.Len(progress, 4)
	req.Zero(progress[0])
	req.InDelta(1.0/3, progress[1], 1e-9)
	req.InDelta(1.0, progress[3], 1e-9)
}

func TestTransferAssembler_ReorderingTolerance(t *testing.T) {
	req := require.New(t)
	fragments := []string{"AAAA", "BBBB", "CCCC", "DDDD", "EEEE", "FFFF", "GG"}
	a, _ := newTestAssembler()

	inOrder := deliver(t, a, fragments, lo.Range(len(fragments)))

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		order := rnd.Perm(len(fragments))
		req.Equal(inOrder, deliver(t, a, fragments, order), "order %v", order)
	}
}

func TestTransferAssembler_DuplicateFragmentIdempotence(t *testing.T) {
	req := require.New(t)
	fragments := []string{"one", "two", "three"}
	a, _ := newTestAssembler()

	once := deliver(t, a, fragments, []int{0, 1, 2})
	twice := deliver(t, a, fragments, []int{0, 1, 1, 2, 0})

	req.Equal(once, twice)
}

func TestTransferAssembler_LastWriteWins(t *testing.T) {
	req := require.New(t)
	a, _ := newTestAssembler()

	a.OnStart(source, 0, 2)
	req.NoError(a.OnFragment(source, 0, []byte("old")))
	req.NoError(a.OnFragment(source, 0, []byte("new")))
	req.NoError(a.OnFragment(source, 1, []byte("-tail")))
	assembled, err := a.OnEnd(source)

	req.NoError(err)
	req.Equal("new-tail", string(assembled.Payload))
}

func TestTransferAssembler_MissingFragmentDegradation(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 0, 4)
	for _, i := range []int{3, 0, 2} {
		req.NoError(a.OnFragment(source, i, []byte{byte('a' + i)}))
	}
	assembled, err := a.OnEnd(source)

	req.NoError(err)
	req.Equal("acd", string(assembled.Payload))
	req.Equal([]int{1}, assembled.Missing)

	missing, ok := lo.Find(drain(events), func(e event.DomainEvent) bool {
		_, ok := e.(event.FragmentsMissing)
		return ok
	})
	req.True(ok)
	req.Equal([]int{1}, missing.(event.FragmentsMissing).Missing)
}

func TestTransferAssembler_RestartDiscardsPreviousFragments(t *testing.T) {
	req := require.New(t)
	a, _ := newTestAssembler()

	a.OnStart(source, 0, 2)
	req.NoError(a.OnFragment(source, 0, []byte("stale-0")))
	req.NoError(a.OnFragment(source, 1, []byte("stale-1")))

	a.OnStart(source, 0, 2)
	req.NoError(a.OnFragment(source, 1, []byte("fresh-1")))
	assembled, err := a.OnEnd(source)

	req.NoError(err)
	req.Equal("fresh-1", string(assembled.Payload))
	req.Equal([]int{0}, assembled.Missing)
}

func TestTransferAssembler_SourcesAreIndependent(t *testing.T) {
	req := require.New(t)
	a, _ := newTestAssembler()
	other := domain.SourceID("esp32/cam/other")

	a.OnStart(source, 0, 1)
	a.OnStart(other, 0, 1)
	req.NoError(a.OnFragment(other, 0, []byte("other")))
	req.NoError(a.OnFragment(source, 0, []byte("mine")))
	req.Equal(2, a.ActiveSessions())

	mine, err := a.OnEnd(source)
	req.NoError(err)
	req.Equal("mine", string(mine.Payload))
	req.Equal(domain.SessionReceiving, a.State(other))
}

func TestTransferAssembler_OutsideSession(t *testing.T) {
	t.Run("Fragment before start is dropped", func(t *testing.T) {
		a, _ := newTestAssembler()
		err := a.OnFragment(source, 0, []byte("late"))
		require.ErrorIs(t, err, errors.ErrFragmentOutsideSession)
	})

	t.Run("Fragment after end is dropped", func(t *testing.T) {
		req := require.New(t)
		a, _ := newTestAssembler()
		a.OnStart(source, 0, 1)
		req.NoError(a.OnFragment(source, 0, []byte("data")))
		_, err := a.OnEnd(source)
		req.NoError(err)

		req.ErrorIs(a.OnFragment(source, 0, []byte("data")), errors.ErrFragmentOutsideSession)
	})

	t.Run("End without start", func(t *testing.T) {
		a, _ := newTestAssembler()
		_, err := a.OnEnd(source)
		require.ErrorIs(t, err, errors.ErrFragmentOutsideSession)
	})
}

func TestTransferAssembler_EmptyBuffer(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 0, 0)
	_, err := a.OnEnd(source)

	req.ErrorIs(err, errors.ErrEmptyAssembledBuffer)
	status, ok := last(lo.FilterMap(drain(events), func(e event.DomainEvent, _ int) (event.StatusChanged, bool) {
		s, ok := e.(event.StatusChanged)
		return s, ok
	}))
	req.True(ok)
	req.Equal("Error: no data", status.Text())
}

func TestTransferAssembler_ProgressIsNotClamped(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 0, 1)
	req.NoError(a.OnFragment(source, 0, []byte("a")))
	req.NoError(a.OnFragment(source, 1, []byte("b")))

	latest, ok := last(drain(events))
	req.True(ok)
	req.InDelta(2.0, latest.(event.ProgressUpdated).Fraction, 1e-9)

	// Fragments beyond the declared count are not assembled.
	assembled, err := a.OnEnd(source)
	req.NoError(err)
	req.Equal("a", string(assembled.Payload))
}

func TestTransferAssembler_ZeroDeclaredChunks(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 0, 0)
	req.NoError(a.OnFragment(source, 0, []byte("a")))

	latest, _ := last(drain(events))
	req.Zero(latest.(event.ProgressUpdated).Fraction)
}

func TestTransferAssembler_Reap(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	stale := domain.SourceID("esp32/cam/stale")
	a.OnStart(stale, 0, 2)
	clock = clock.Add(time.Minute)
	a.OnStart(source, 0, 2)
	clock = clock.Add(30 * time.Second)

	reaped := a.Reap(time.Minute)

	req.Equal([]domain.SourceID{stale}, reaped)
	req.Equal(domain.SessionIdle, a.State(stale))
	req.Equal(domain.SessionReceiving, a.State(source))
	req.ErrorIs(a.OnFragment(stale, 0, []byte("x")), errors.ErrFragmentOutsideSession)

	status, ok := last(lo.FilterMap(drain(events), func(e event.DomainEvent, _ int) (event.StatusChanged, bool) {
		s, ok := e.(event.StatusChanged)
		return s, ok && s.Status == domain.StatusError
	}))
	req.True(ok)
	req.ErrorIs(status.Err, errors.ErrSessionExpired)
	req.Equal(stale, status.Source)
}

func TestTransferAssembler_FullEventChannelNeverBlocks(t *testing.T) {
	req := require.New(t)
	a := NewTransferAssembler(slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan event.DomainEvent))

	done := make(chan struct{})
	go func() {
		a.OnStart(source, 0, 1)
		_ = a.OnFragment(source, 0, []byte("x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("assembler blocked on a full event channel")
	}
}

func TestTransferAssembler_HugeDeclaredChunkCount(t *testing.T) {
	req := require.New(t)
	a, events := newTestAssembler()

	a.OnStart(source, 0, 2_000_000_000)
	req.NoError(a.OnFragment(source, 1, []byte("only")))
	req.NoError(a.OnFragment(source, 2_100_000_000, []byte("beyond")))
	assembled, err := a.OnEnd(source)

	req.NoError(err)
	req.Equal("only", string(assembled.Payload))
	req.Equal(1_999_999_999, assembled.MissingCount)
	req.Len(assembled.Missing, maxReportedMissing)
	req.Equal(0, assembled.Missing[0])
	req.Equal(2, assembled.Missing[1])

	missing, ok := lo.Find(drain(events), func(e event.DomainEvent) bool {
		_, ok := e.(event.FragmentsMissing)
		return ok
	})
	req.True(ok)
	req.Equal(1_999_999_999, missing.(event.FragmentsMissing).Count)
	req.Len(missing.(event.FragmentsMissing).Missing, maxReportedMissing)
}

func TestTransferAssembler_DeclaredCountWithNothingReceived(t *testing.T) {
	req := require.New(t)
	a, _ := newTestAssembler()

	a.OnStart(source, 0, 2_000_000_000)
	assembled, err := a.OnEnd(source)

	req.ErrorIs(err, errors.ErrEmptyAssembledBuffer)
	req.Equal(2_000_000_000, assembled.MissingCount)
	req.Len(assembled.Missing, maxReportedMissing)
}

func TestMissingIndices(t *testing.T) {
	req := require.New(t)
	req.Empty(missingIndices([]int{0, 1, 2}, 3, 10))
	req.Equal([]int{1, 4}, missingIndices([]int{0, 2, 3}, 5, 10))
	req.Equal([]int{0, 1}, missingIndices(nil, 100, 2))
	req.Equal([]int{0, 1, 2}, missingIndices(nil, 3, 10))
}

func TestTransferAssembler_StaleAbortSparesRestartedTransfer(t *testing.T) {
	req := require.New(t)
	a, _ := newTestAssembler()

	a.OnStart(source, 0, 1)
	stale, ok := a.session(source)
	req.True(ok)

	// A new start marker lands between the expiry scan and the abort
	a.OnStart(source, 0, 1)
	req.False(a.abort(source, stale, errors.ErrSessionExpired))

	req.Equal(domain.SessionReceiving, a.State(source))
	req.NoError(a.OnFragment(source, 0, []byte("fresh")))
	assembled, err := a.OnEnd(source)
	req.NoError(err)
	req.Equal("fresh", string(assembled.Payload))
}
