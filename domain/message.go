package domain

import "time"

// InboundMessage is a raw payload as delivered by the transport.
type InboundMessage struct {
	Source     SourceID
	Payload    []byte
	ReceivedAt time.Time
}
