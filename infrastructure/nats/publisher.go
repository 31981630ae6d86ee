package nats

import (
	"cam-relay/domain"
	"cam-relay/protocol"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Publisher plays the camera side of the protocol.
type Publisher struct {
	log  *slog.Logger
	conn *nats.Conn
}

func NewPublisher(url, name string, log *slog.Logger) (*Publisher, error) {
	conn, err := connect(url, name, log)
	if err != nil {
		return nil, err
	}
	return &Publisher{log: log, conn: conn}, nil
}

// PublishTransfer sends encoded as one chunked transfer: start marker, fragments, end marker.
func (p *Publisher) PublishTransfer(subject, encoded string, chunkSize int) error {
	messages := protocol.Split(encoded, chunkSize)
	for i, msg := range messages {
		if err := p.conn.Publish(subject, msg); err != nil {
			return fmt.Errorf("failed to publish message %d/%d: %w", i+1, len(messages), err)
		}
	}
	p.log.Debug("Transfer published", "subject", subject, "chars", len(encoded), "fragments", len(messages)-2)
	return p.conn.Flush()
}

// PublishEnvelope sends a whole payload with its metadata in one message.
func (p *Publisher) PublishEnvelope(subject string, env domain.Envelope) error {
	payload, err := protocol.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if err = p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	p.log.Debug("Envelope published", "subject", subject, "bytes", len(payload))
	return p.conn.Flush()
}

func (p *Publisher) PublishStatus(subject string, status []byte) error {
	if err := p.conn.Publish(subject, status); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return p.conn.Flush()
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
