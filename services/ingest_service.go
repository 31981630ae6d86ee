package services

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/errors"
	"cam-relay/protocol"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var _ contract.MessageHandler = (*IngestService)(nil)

// IngestService classifies raw messages of one source and drives the assembler.
// Complete buffers are queued for decoding without ever blocking the caller.
type IngestService struct {
	log           *slog.Logger
	assembler     *TransferAssembler
	devices       *DeviceTracker
	jobs          chan<- domain.DecodeJob
	events        chan<- event.DomainEvent
	statusSubject domain.SourceID
}

func NewIngestService(
	log *slog.Logger,
	assembler *TransferAssembler,
	devices *DeviceTracker,
	jobs chan<- domain.DecodeJob,
	events chan<- event.DomainEvent,
	statusSubject domain.SourceID,
) *IngestService {
	return &IngestService{
		log:           log,
		assembler:     assembler,
		devices:       devices,
		jobs:          jobs,
		events:        events,
		statusSubject: statusSubject,
	}
}

func (s *IngestService) Handle(_ context.Context, msg domain.InboundMessage) error {
	if s.statusSubject != "" && msg.Source == s.statusSubject {
		return s.handleDeviceStatus(msg)
	}

	parsed, err := protocol.Parse(msg.Payload)
	switch parsed.Kind {
	case protocol.KindStart:
		if err != nil {
			s.log.Warn("Malformed start marker, assuming empty transfer", "source", msg.Source, "error", err)
		}
		s.assembler.OnStart(msg.Source, parsed.TotalSize, parsed.TotalChunks)
		return nil

	case protocol.KindFragment:
		if err := s.assembler.OnFragment(msg.Source, parsed.Index, parsed.Data); err != nil {
			if errors.Is(err, errors.ErrFragmentOutsideSession) {
				s.log.Debug("Dropping fragment", "source", msg.Source, "index", parsed.Index, "error", err)
				return nil
			}
			return err
		}
		return nil

	case protocol.KindEnd:
		assembled, err := s.assembler.OnEnd(msg.Source)
		if err != nil {
			if errors.Is(err, errors.ErrFragmentOutsideSession) {
				s.log.Debug("Ignoring end marker", "source", msg.Source, "error", err)
				return nil
			}
			return err
		}
		return s.submit(domain.DecodeJob{
			ID:         uuid.New(),
			Source:     msg.Source,
			Payload:    assembled.Payload,
			Metadata:   domain.Envelope{}.Metadata(),
			ReceivedAt: msg.ReceivedAt,
		})

	case protocol.KindEnvelope:
		return s.submit(domain.DecodeJob{
			ID:         uuid.New(),
			Source:     msg.Source,
			Payload:    parsed.Data,
			Metadata:   parsed.Envelope.Metadata(),
			ReceivedAt: msg.ReceivedAt,
		})

	default:
		if errors.Is(err, errors.ErrUnknownMessage) {
			s.log.Debug("Ignoring unknown message", "source", msg.Source, "bytes", len(msg.Payload))
			return nil
		}
		s.status(msg.Source, domain.StatusError, err, msg.ReceivedAt)
		return err
	}
}

func (s *IngestService) submit(job domain.DecodeJob) error {
	select {
	case s.jobs <- job:
		s.status(job.Source, domain.StatusProcessing, nil, job.ReceivedAt)
		return nil
	default:
		s.status(job.Source, domain.StatusError, errors.ErrDecodeQueueFull, job.ReceivedAt)
		return fmt.Errorf("%w: job %s from %s dropped", errors.ErrDecodeQueueFull, job.ID, job.Source)
	}
}

func (s *IngestService) handleDeviceStatus(msg domain.InboundMessage) error {
	if s.devices == nil {
		return nil
	}
	status, err := protocol.ParseDeviceStatus(msg.Payload)
	if err != nil {
		return err
	}
	return s.devices.Seen(msg.Source, status, msg.ReceivedAt)
}

func (s *IngestService) status(source domain.SourceID, status domain.Status, err error, at time.Time) {
	select {
	case s.events <- event.StatusChanged{Source: source, Status: status, Err: err, At: at}:
	default:
		s.log.Debug("Event channel full, dropping status", "source", source, "status", status)
	}
}
