// Package protocol classifies raw transport payloads into start, fragment, end and
// envelope messages, and encodes them for the publisher side.
package protocol

import (
	"bytes"
	"cam-relay/domain"
	"cam-relay/errors"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	StartPrefix    = "IMG_START:"
	FragmentPrefix = "IMG_CHUNK:"
	EndMarker      = "IMG_END"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindFragment
	KindEnd
	KindEnvelope
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindFragment:
		return "fragment"
	case KindEnd:
		return "end"
	case KindEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// Message is a classified inbound payload. Only the fields matching Kind are set.
type Message struct {
	Kind        Kind
	TotalSize   int64
	TotalChunks int
	Index       int
	Data        []byte
	Envelope    *domain.Envelope
}

// Parse classifies a payload by marker or JSON shape.
//
// A start marker with missing or non-numeric fields still yields a KindStart message with
// zero sizes, together with ErrMalformedStartMarker so the caller can log it.
func Parse(payload []byte) (Message, error) {
	text := string(payload)
	switch {
	case strings.HasPrefix(text, StartPrefix):
		return parseStart(text)
	case strings.HasPrefix(text, FragmentPrefix):
		return parseFragment(text)
	case text == EndMarker:
		return Message{Kind: KindEnd}, nil
	case looksLikeJSON(payload):
		return parseEnvelope(payload)
	default:
		return Message{Kind: KindUnknown}, errors.ErrUnknownMessage
	}
}

func parseStart(text string) (Message, error) {
	msg := Message{Kind: KindStart}
	parts := strings.Split(text, ":")
	if len(parts) < 3 {
		return msg, fmt.Errorf("%w: expected 3 fields, got %d", errors.ErrMalformedStartMarker, len(parts))
	}
	size, sizeErr := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	chunks, chunksErr := strconv.Atoi(strings.TrimSpace(parts[2]))
	if sizeErr != nil || chunksErr != nil || size < 0 || chunks < 0 {
		return msg, fmt.Errorf("%w: %q", errors.ErrMalformedStartMarker, text)
	}
	msg.TotalSize = size
	msg.TotalChunks = chunks
	return msg, nil
}

func parseFragment(text string) (Message, error) {
	parts := strings.SplitN(text, ":", 3)
	if len(parts) != 3 {
		return Message{Kind: KindUnknown}, fmt.Errorf("%w: missing payload", errors.ErrMalformedFragment)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return Message{Kind: KindUnknown}, fmt.Errorf("%w: bad index %q", errors.ErrMalformedFragment, parts[1])
	}
	return Message{Kind: KindFragment, Index: index, Data: []byte(parts[2])}, nil
}

func parseEnvelope(payload []byte) (Message, error) {
	var env domain.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Message{Kind: KindUnknown}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	if env.ImageAES == "" {
		return Message{Kind: KindUnknown}, fmt.Errorf("%w: empty image_aes", errors.ErrMalformedEnvelope)
	}
	return Message{Kind: KindEnvelope, Data: []byte(env.ImageAES), Envelope: &env}, nil
}

func looksLikeJSON(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ParseDeviceStatus decodes a status-subject announcement.
func ParseDeviceStatus(payload []byte) (domain.DeviceStatus, error) {
	var status domain.DeviceStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return status, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	return status, nil
}
