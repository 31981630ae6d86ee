//go:generate go run go.uber.org/mock/mockgen -source=capture_repository.go -destination=../../mocks/mock_capture_repository.go -package=mocks
package storage

import (
	"cam-relay/domain"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const capturePrefix = "capture:"

// Capture is the persisted form of a decoded artifact and its metadata.
type Capture struct {
	ID            string    `msgpack:"id"`
	Source        string    `msgpack:"source"`
	ClientID      string    `msgpack:"client_id"`
	Label         string    `msgpack:"label"`
	Confidence    float64   `msgpack:"confidence"`
	InferenceTime float64   `msgpack:"inference_time"`
	Kind          string    `msgpack:"kind"`
	MIME          string    `msgpack:"mime"`
	Width         int       `msgpack:"width"`
	Height        int       `msgpack:"height"`
	Bytes         []byte    `msgpack:"bytes"`
	CapturedAt    time.Time `msgpack:"captured_at"`
}

func ToCapture(a domain.Artifact) Capture {
	c := Capture{
		ID:            a.ID.String(),
		Source:        string(a.Source),
		ClientID:      a.Metadata.ClientID,
		Label:         a.Metadata.Label,
		Confidence:    a.Metadata.Confidence,
		InferenceTime: a.Metadata.InferenceTime,
		Kind:          a.Kind.String(),
		Bytes:         a.Bytes,
		CapturedAt:    a.DecodedAt,
	}
	if a.Image != nil {
		c.MIME = a.Image.MIME
		c.Width = a.Image.Width
		c.Height = a.Image.Height
	}
	return c
}

type ICaptureRepository interface {
	Store(capture Capture) error
	ListRecent(limit int) ([]Capture, error)
	Prune(keep int) (int, error)
}

type CaptureRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewCaptureRepository(db *badger.DB, log *slog.Logger) *CaptureRepository {
	return &CaptureRepository{
		db:  db,
		log: log,
	}
}

// captureKey sorts chronologically: the timestamp is zero padded.
func captureKey(c Capture) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", capturePrefix, c.CapturedAt.UnixNano(), c.ID))
}

func (r CaptureRepository) Store(capture Capture) error {
	data, err := msgpack.Marshal(capture)
	if err != nil {
		return fmt.Errorf("failed to marshal capture: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(captureKey(capture), data)
	})
}

// ListRecent returns at most limit captures, newest first.
func (r CaptureRepository) ListRecent(limit int) ([]Capture, error) {
	var captures []Capture
	prefix := []byte(capturePrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = max(limit, 1)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key lower or equal to the seek key
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix) && len(captures) < limit; it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var c Capture
				if err := msgpack.Unmarshal(v, &c); err != nil {
					return fmt.Errorf("failed to unmarshal capture: %w", err)
				}
				captures = append(captures, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during capture listing: %w", err)
	}
	return captures, nil
}

// Prune deletes everything but the keep most recent captures and returns the number removed.
func (r CaptureRepository) Prune(keep int) (int, error) {
	var stale [][]byte
	prefix := []byte(capturePrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	batch := r.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range stale {
		if err = batch.Delete(key); err != nil {
			return 0, err
		}
	}
	if err = batch.Flush(); err != nil {
		return 0, err
	}
	r.log.Debug("Old captures pruned", "removed", len(stale), "kept", keep)
	return len(stale), nil
}
