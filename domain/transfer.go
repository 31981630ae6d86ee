package domain

import (
	"sync"
	"time"
)

// SourceID identifies the logical sender of a transfer. With NATS it is the subject.
type SourceID string

type SessionState int

const (
	SessionIdle SessionState = iota
	SessionReceiving
	SessionCompleted
	SessionAborted
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "Idle"
	case SessionReceiving:
		return "Receiving"
	case SessionCompleted:
		return "Completed"
	case SessionAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// TransferSession tracks one in-flight chunked transfer for one source.
// TotalSize and TotalChunks are fixed by the start marker.
type TransferSession struct {
	Mu           sync.Mutex
	Source       SourceID
	TotalSize    int64
	TotalChunks  int
	Chunks       map[int][]byte
	State        SessionState
	StartedAt    time.Time
	LastActivity time.Time
}

func NewTransferSession(source SourceID, totalSize int64, totalChunks int, now time.Time) *TransferSession {
	return &TransferSession{
		Source:       source,
		TotalSize:    totalSize,
		TotalChunks:  totalChunks,
		Chunks:       make(map[int][]byte),
		State:        SessionReceiving,
		StartedAt:    now,
		LastActivity: now,
	}
}

// Received is the number of distinct fragment indices stored so far.
func (s *TransferSession) Received() int {
	return len(s.Chunks)
}

// Progress returns Received/TotalChunks, unclamped. Zero when no chunk count was declared.
func (s *TransferSession) Progress() float64 {
	if s.TotalChunks <= 0 {
		return 0
	}
	return float64(s.Received()) / float64(s.TotalChunks)
}

// AssembledTransfer is the outcome of an end marker: the concatenated fragments in index
// order and the indices that never arrived. Missing holds the lowest ones only,
// MissingCount the full number.
type AssembledTransfer struct {
	Source       SourceID
	Payload      []byte
	Missing      []int
	MissingCount int
	TotalSize    int64
	TotalChunks  int
}
