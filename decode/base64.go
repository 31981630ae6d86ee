package decode

import (
	"cam-relay/errors"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// Normalize strips whitespace from text and rejects payloads shorter than minChars.
// The returned string is padded with '=' to a multiple of 4.
func Normalize(text string, minChars int) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	if len(clean) < minChars {
		return "", fmt.Errorf("%w: %d chars, need at least %d", errors.ErrPayloadTooShort, len(clean), minChars)
	}
	return pad(clean), nil
}

func pad(s string) string {
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	return s
}

// decodeStrict rejects any character outside the standard alphabet and non-canonical padding bits.
func decodeStrict(s string) ([]byte, error) {
	return base64.StdEncoding.Strict().DecodeString(s)
}

// decodeLenient discards every character outside the standard alphabet, repairs the
// padding and decodes what is left.
func decodeLenient(s string) ([]byte, error) {
	kept := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			return r
		default:
			return -1
		}
	}, s)
	if kept == "" {
		return nil, fmt.Errorf("no base64 characters left")
	}
	return base64.StdEncoding.DecodeString(pad(kept))
}
