package main

import (
	"bytes"
	"cam-relay/decode"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTrip(t *testing.T) {
	req := require.New(t)
	raw := bytes.Repeat([]byte("frame"), 40)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Clear", func(t *testing.T) {
		encoded, err := encode(raw, Config{})
		req.NoError(err)

		pipeline, err := decode.NewPipeline(log, decode.Options{})
		req.NoError(err)
		decoded, err := pipeline.Decode([]byte(encoded))
		req.NoError(err)
		req.Equal(raw, decoded.Bytes)
	})

	t.Run("Encrypted", func(t *testing.T) {
		config := Config{CipherKey: "0123456789abcdef", CipherIV: "hex:00112233445566778899aabbccddeeff"}
		encoded, err := encode(raw, config)
		req.NoError(err)

		pipeline, err := decode.NewPipeline(log, decode.Options{
			Key: []byte("0123456789abcdef"),
			IV:  []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		})
		req.NoError(err)
		decoded, err := pipeline.Decode([]byte(encoded))
		req.NoError(err)
		req.Equal(raw, decoded.Bytes)
	})
}
