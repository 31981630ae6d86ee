package nats

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

var _ contract.Worker = (*Subscriber)(nil)

// Subscriber forwards every message received on its subjects to the handler.
// NATS delivers the messages of one subscription sequentially, so the order of a source is kept.
type Subscriber struct {
	log      *slog.Logger
	conn     *nats.Conn
	subjects []string
	handler  contract.MessageHandler
}

func NewSubscriber(url, name string, subjects []string, handler contract.MessageHandler, log *slog.Logger) (*Subscriber, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("at least one subject is required")
	}
	conn, err := connect(url, name, log)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		log:      log,
		conn:     conn,
		subjects: subjects,
		handler:  handler,
	}, nil
}

// Run subscribes to every subject and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	subs := make([]*nats.Subscription, 0, len(s.subjects))
	defer func() {
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				s.log.Warn("Failed to unsubscribe", "subject", sub.Subject, "error", err)
			}
		}
	}()

	for _, subject := range s.subjects {
		sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
			inbound := domain.InboundMessage{
				Source:     domain.SourceID(msg.Subject),
				Payload:    msg.Data,
				ReceivedAt: time.Now(),
			}
			if err := s.handler.Handle(ctx, inbound); err != nil {
				s.log.Debug("Message not handled", "subject", msg.Subject, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	s.log.Info("NATS subscription started", "subjects", s.subjects)
	<-ctx.Done()
	s.log.Info("NATS subscription stopped")
	return ctx.Err()
}

func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
