package workers

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"cam-relay/mocks"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDecodeWorker_Run(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := domain.DecodeJob{
		ID:       uuid.New(),
		Source:   "esp32/cam/image",
		Payload:  []byte("payload"),
		Metadata: domain.CaptureMetadata{Label: "cat"},
	}

	t.Run("Success emits the artifact", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		decoder := mocks.NewMockDecoder(ctrl)
		jobs := make(chan domain.DecodeJob, 1)
		events := make(chan event.DomainEvent, 1)

		decoder.EXPECT().Decode([]byte("payload")).Return(domain.Decoded{
			Bytes: []byte("image"),
			Kind:  domain.KindImage,
			Image: &domain.ImageInfo{Format: "jpeg", Width: 4, Height: 3},
		}, nil)

		jobs <- job
		close(jobs)
		req.NoError(NewDecodeWorker(jobs, events, decoder, log).Run(context.Background()))

		decoded := (<-events).(event.ArtifactDecoded)
		req.Equal(job.ID, decoded.JobID)
		req.Equal(job.Source, decoded.Artifact.Source)
		req.Equal("cat", decoded.Artifact.Metadata.Label)
		req.Equal([]byte("image"), decoded.Artifact.Bytes)
		req.Equal(4, decoded.Artifact.Image.Width)
		req.NotEqual(uuid.Nil, decoded.Artifact.ID)
	})

	t.Run("Failure emits an error status", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		decoder := mocks.NewMockDecoder(ctrl)
		jobs := make(chan domain.DecodeJob, 1)
		events := make(chan event.DomainEvent, 1)

		decoder.EXPECT().Decode(gomock.Any()).Return(domain.Decoded{}, errors.ErrDecryption)

		jobs <- job
		close(jobs)
		req.NoError(NewDecodeWorker(jobs, events, decoder, log).Run(context.Background()))

		status := (<-events).(event.StatusChanged)
		req.Equal(domain.StatusError, status.Status)
		req.Equal("Error: decryption failed", status.Text())
	})

	t.Run("Slow consumers never block decoding", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		decoder := mocks.NewMockDecoder(ctrl)
		jobs := make(chan domain.DecodeJob, 3)
		events := make(chan event.DomainEvent)

		decoder.EXPECT().Decode(gomock.Any()).Return(domain.Decoded{Bytes: []byte("x")}, nil).Times(3)

		for range 3 {
			jobs <- job
		}
		close(jobs)

		done := make(chan error)
		go func() { done <- NewDecodeWorker(jobs, events, decoder, log).Run(context.Background()) }()

		select {
		case err := <-done:
			req.NoError(err)
		case <-time.After(time.Second):
			req.Fail("decode worker blocked on the event channel")
		}
	})
}
