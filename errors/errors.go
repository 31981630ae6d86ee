package errors

import (
	stdErrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Assembly phase
	ErrMalformedStartMarker   = fmt.Errorf("malformed start marker")
	ErrMalformedFragment      = fmt.Errorf("malformed fragment")
	ErrFragmentOutsideSession = fmt.Errorf("fragment outside session")
	ErrMissingFragments       = fmt.Errorf("missing fragments")
	ErrEmptyAssembledBuffer   = fmt.Errorf("no data")
	ErrSessionExpired         = fmt.Errorf("transfer timed out")
	ErrMalformedEnvelope      = fmt.Errorf("malformed envelope")

	// Decode phase
	ErrPayloadTooShort       = fmt.Errorf("payload too short")
	ErrBase64                = fmt.Errorf("base64 decode failed")
	ErrDecryption            = fmt.Errorf("decryption failed")
	ErrPayloadTooSmall       = fmt.Errorf("payload too small")
	ErrInvalidImageContainer = fmt.Errorf("invalid image container")
	ErrDecodeQueueFull       = fmt.Errorf("decode queue full")
	ErrInvalidCipherConfig   = fmt.Errorf("invalid cipher configuration")
	ErrUnknownMessage        = fmt.Errorf("unknown message")
)

// kinds maps every sentinel to the stable name reported to consumers.
var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedStartMarker, "MalformedStartMarker"},
	{ErrMalformedFragment, "MalformedFragment"},
	{ErrFragmentOutsideSession, "FragmentOutsideSession"},
	{ErrMissingFragments, "MissingFragments"},
	{ErrEmptyAssembledBuffer, "EmptyAssembledBuffer"},
	{ErrSessionExpired, "SessionExpired"},
	{ErrMalformedEnvelope, "MalformedEnvelope"},
	{ErrPayloadTooShort, "PayloadTooShort"},
	{ErrBase64, "Base64Error"},
	{ErrDecryption, "DecryptionError"},
	{ErrPayloadTooSmall, "PayloadTooSmall"},
	{ErrInvalidImageContainer, "InvalidImageContainer"},
	{ErrDecodeQueueFull, "DecodeQueueFull"},
	{ErrInvalidCipherConfig, "InvalidCipherConfig"},
	{ErrUnknownMessage, "UnknownMessage"},
	{ErrWorkerPanic, "WorkerPanic"},
}

// Kind returns the name of the first known sentinel wrapped by err, or "Unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if stdErrors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}

func Is(err, target error) bool { return stdErrors.Is(err, target) }

func As(err error, target any) bool { return stdErrors.As(err, target) }
