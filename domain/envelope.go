package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultLabel = "unknown"

// Envelope is the single-message JSON variant. Only ImageAES is interpreted,
// the other fields travel untouched to the sinks.
type Envelope struct {
	ImageAES      string  `json:"image_aes"`
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	ClientID      string  `json:"client_id"`
	Timestamp     int64   `json:"timestamp"`
	InferenceTime float64 `json:"inference_time"`
}

// UnmarshalJSON requires image_aes to be a string when present. Metadata fields are
// read leniently: a value of an unexpected type degrades to its best reading or to
// the zero value instead of rejecting the image.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["image_aes"]; ok {
		if err := json.Unmarshal(raw, &e.ImageAES); err != nil {
			return fmt.Errorf("image_aes: %w", err)
		}
	}
	e.Label = looseString(fields["label"])
	e.ClientID = looseString(fields["client_id"])
	e.Confidence = looseFloat(fields["confidence"])
	e.InferenceTime = looseFloat(fields["inference_time"])
	e.Timestamp = looseTimestamp(fields["timestamp"])
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func looseFloat(raw json.RawMessage) float64 {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f
	}
	if s := looseString(raw); s != "" {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed
		}
	}
	return 0
}

// looseTimestamp reads epoch milliseconds from a number or a numeric string.
// RFC 3339 strings are converted to milliseconds.
func looseTimestamp(raw json.RawMessage) int64 {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return int64(f)
	}
	s := looseString(raw)
	if s == "" {
		return 0
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(ms)
	}
	if at, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return at.UnixMilli()
	}
	return 0
}

// CaptureMetadata is the opaque metadata attached to an artifact.
type CaptureMetadata struct {
	Label         string
	Confidence    float64
	ClientID      string
	Timestamp     int64
	InferenceTime float64
}

func (e Envelope) Metadata() CaptureMetadata {
	label := e.Label
	if label == "" {
		label = DefaultLabel
	}
	return CaptureMetadata{
		Label:         label,
		Confidence:    e.Confidence,
		ClientID:      e.ClientID,
		Timestamp:     e.Timestamp,
		InferenceTime: e.InferenceTime,
	}
}

// DeviceStatus is published by a camera on the status subject when it comes online.
type DeviceStatus struct {
	ClientID string `json:"client_id" validate:"required"`
	IP       string `json:"ip"`
	Status   string `json:"status"`
}
