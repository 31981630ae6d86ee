package main

import (
	"bytes"
	"cam-relay/infrastructure/storage"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderHistory(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	renderHistory(&buf, []storage.Capture{
		{
			ID:         "3d2c1b0a-ffff",
			Label:      "person",
			Confidence: 88.24,
			ClientID:   "esp32-cam-1",
			Source:     "esp32.cam1.image",
			MIME:       "image/jpeg",
			Width:      320,
			Height:     240,
			Bytes:      make([]byte, 2048),
			CapturedAt: time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC),
		},
	})

	out := buf.String()
	req.Contains(out, "14:03:09")
	req.Contains(out, "person")
	req.Contains(out, "88.2%")
	req.Contains(out, "image/jpeg 320x240")
	req.Contains(out, "3d2c1b0a")
	req.NotContains(out, "3d2c1b0a-ffff")
}

func TestExportCaptures(t *testing.T) {
	req := require.New(t)
	folder := t.TempDir()
	at := time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)

	req.NoError(exportCaptures(folder, []storage.Capture{
		{Label: "cat", MIME: "image/png", Bytes: []byte("png"), CapturedAt: at},
		{Label: "a/b", Bytes: []byte("raw"), CapturedAt: at},
	}))

	data, err := os.ReadFile(filepath.Join(folder, "20240501_140309_cat.png"))
	req.NoError(err)
	req.Equal([]byte("png"), data)
	req.FileExists(filepath.Join(folder, "20240501_140309_a_b.bin"))
}
