package sink_test

import (
	"bytes"
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"cam-relay/infrastructure/storage"
	"cam-relay/mocks"
	"cam-relay/sink"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func decoded(label string, payload []byte) event.ArtifactDecoded {
	return event.ArtifactDecoded{
		JobID: uuid.New(),
		Artifact: domain.Artifact{
			ID:        uuid.New(),
			Source:    "esp32/cam/image",
			Bytes:     payload,
			Metadata:  domain.CaptureMetadata{Label: label, Confidence: 91.2},
			DecodedAt: time.Now(),
		},
	}
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestDiskSink_Consume(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	folder := filepath.Join(t.TempDir(), "captures")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sink.NewDiskSink(folder, logger)
	req.NoError(err)

	payload := pngBytes(t)
	req.NoError(s.Consume(ctx, decoded("person", payload)))
	req.NoError(s.Consume(ctx, decoded("red car/2", []byte("opaque"))))
	req.NoError(s.Consume(ctx, decoded("", []byte("opaque"))))
	// Other events are ignored
	req.NoError(s.Consume(ctx, event.StatusChanged{Source: "esp32/cam/image", Status: domain.StatusReceiving}))

	saved, err := os.ReadFile(filepath.Join(folder, "img_1_person.png"))
	req.NoError(err)
	req.Equal(payload, saved)

	req.FileExists(filepath.Join(folder, "img_2_red_car_2.bin"))
	req.FileExists(filepath.Join(folder, "img_3_unknown.bin"))

	entries, err := os.ReadDir(folder)
	req.NoError(err)
	req.Len(entries, 3)
}

func TestDiskSink_ResumesNumberingAfterRestart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	folder := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := sink.NewDiskSink(folder, logger)
	req.NoError(err)
	req.NoError(first.Consume(ctx, decoded("person", []byte("first run"))))
	req.NoError(os.WriteFile(filepath.Join(folder, "img_9_cat.bin"), []byte("older"), 0o644))
	req.NoError(os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("unrelated"), 0o644))

	restarted, err := sink.NewDiskSink(folder, logger)
	req.NoError(err)
	req.NoError(restarted.Consume(ctx, decoded("person", []byte("second run"))))

	kept, err := os.ReadFile(filepath.Join(folder, "img_1_person.bin"))
	req.NoError(err)
	req.Equal("first run", string(kept))

	saved, err := os.ReadFile(filepath.Join(folder, "img_10_person.bin"))
	req.NoError(err)
	req.Equal("second run", string(saved))
}

func TestCaptureSink_Consume(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Stores decoded artifacts only", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockICaptureRepository(ctrl)
		s := sink.NewCaptureSink(repo, logger, 0)

		evt := decoded("cat", []byte("bytes"))
		repo.EXPECT().Store(gomock.Any()).DoAndReturn(func(c storage.Capture) error {
			req.Equal(evt.Artifact.ID.String(), c.ID)
			req.Equal("cat", c.Label)
			req.Equal(91.2, c.Confidence)
			return nil
		}).Times(1)

		req.NoError(s.Consume(ctx, evt))
		req.NoError(s.Consume(ctx, event.ProgressUpdated{Fraction: 0.5}))
	})

	t.Run("Prunes periodically when retention is set", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockICaptureRepository(ctrl)
		s := sink.NewCaptureSink(repo, logger, 10)

		repo.EXPECT().Store(gomock.Any()).Return(nil).Times(100)
		repo.EXPECT().Prune(10).Return(40, nil).Times(2)

		for range 100 {
			req.NoError(s.Consume(ctx, decoded("cat", nil)))
		}
	})

	t.Run("Store failure is returned", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockICaptureRepository(ctrl)
		s := sink.NewCaptureSink(repo, logger, 0)

		repo.EXPECT().Store(gomock.Any()).Return(errors.ErrWorkerPanic)
		req.ErrorIs(s.Consume(ctx, decoded("cat", nil)), errors.ErrWorkerPanic)
	})
}

func TestTimeline_Consume(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := sink.NewTimeline()
	source := domain.SourceID("esp32/cam/image")

	_, ok := timeline.View(source)
	req.False(ok)

	req.NoError(timeline.Consume(ctx, event.StatusChanged{Source: source, Status: domain.StatusReceiving}))
	req.NoError(timeline.Consume(ctx, event.ProgressUpdated{Source: source, Fraction: 2.0 / 3}))
	req.NoError(timeline.Consume(ctx, event.StatusChanged{Source: source, Status: domain.StatusError, Err: errors.ErrEmptyAssembledBuffer}))

	view, ok := timeline.View(source)
	req.True(ok)
	req.Equal("Error: no data", view.Status)
	req.InDelta(0.667, view.Progress, 0.001)
	req.Equal(1, view.Failures)

	evt := decoded("dog", nil)
	req.NoError(timeline.Consume(ctx, evt))
	view, _ = timeline.View(source)
	req.Equal(1, view.Decoded)
	req.Equal("dog", view.LastLabel)
	req.Len(timeline.Snapshot(), 1)
}

func TestLogSink_Consume(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logSink := sink.NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	req.NoError(logSink.Consume(ctx, event.StatusChanged{Source: "cam", Status: domain.StatusError, Err: errors.ErrDecryption}))
	req.NoError(logSink.Consume(ctx, decoded("cat", []byte("x"))))

	out := buf.String()
	req.Contains(out, "Error: decryption failed")
	req.Contains(out, "kind=DecryptionError")
	req.Contains(out, "Artifact decoded")
}
