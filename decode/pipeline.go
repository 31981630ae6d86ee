// Package decode turns a complete base64 payload into validated bytes: whitespace and
// padding repair, optional AES-CBC decryption with PKCS#7 removal, a size floor and an
// optional image container check. Every failure wraps exactly one sentinel of package errors.
package decode

import (
	"cam-relay/domain"
	"cam-relay/errors"
	"crypto/cipher"
	"fmt"
	"log/slog"
)

const (
	DefaultMinViableCiphertextChars = 100
	DefaultMinViableDecodedBytes    = 100
)

type Options struct {
	Key                      []byte
	IV                       []byte
	RequireImageValidation   bool
	MinViableCiphertextChars int
	MinViableDecodedBytes    int
}

type Pipeline struct {
	log     *slog.Logger
	block   cipher.Block
	iv      []byte
	options Options
}

func NewPipeline(log *slog.Logger, options Options) (*Pipeline, error) {
	block, err := newBlock(options.Key, options.IV)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		log:     log,
		block:   block,
		iv:      options.IV,
		options: options,
	}, nil
}

// Encrypted reports whether a key/IV pair is configured.
func (p *Pipeline) Encrypted() bool { return p.block != nil }

// Decode runs the four steps in order. It is safe for concurrent use.
func (p *Pipeline) Decode(raw []byte) (domain.Decoded, error) {
	// 1. Base64
	normalized, err := Normalize(string(raw), p.options.MinViableCiphertextChars)
	if err != nil {
		return domain.Decoded{}, err
	}

	data, err := decodeStrict(normalized)
	if err != nil {
		p.log.Warn("Strict base64 decode failed, retrying leniently", "error", err, "chars", len(normalized))
		var lenientErr error
		data, lenientErr = decodeLenient(normalized)
		if lenientErr != nil {
			return domain.Decoded{}, fmt.Errorf("%w: strict: %v, lenient: %v", errors.ErrBase64, err, lenientErr)
		}
	}

	// 2. Decrypt
	if p.block != nil {
		data, err = decryptCBC(p.block, p.iv, data)
		if err != nil {
			return domain.Decoded{}, err
		}
	}

	// 3. Size floor
	if len(data) < p.options.MinViableDecodedBytes {
		return domain.Decoded{}, fmt.Errorf("%w: %d bytes, need at least %d",
			errors.ErrPayloadTooSmall, len(data), p.options.MinViableDecodedBytes)
	}

	// 4. Container
	if !p.options.RequireImageValidation {
		return domain.Decoded{Bytes: data, Kind: domain.KindOpaqueBytes}, nil
	}
	info, err := validateContainer(data)
	if err != nil {
		return domain.Decoded{}, err
	}
	return domain.Decoded{Bytes: data, Kind: domain.KindImage, Image: info}, nil
}
