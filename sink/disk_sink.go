package sink

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/domain/mimetypes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
)

var (
	unsafeLabel = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	savedName   = regexp.MustCompile(`^img_(\d+)_`)
)

// DiskSink writes every decoded artifact to folder as img_<n>_<label><ext>.
// Numbering resumes after the highest n already present in folder.
type DiskSink struct {
	folder  string
	log     *slog.Logger
	counter atomic.Int64
}

func NewDiskSink(folder string, log *slog.Logger) (*DiskSink, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save folder %s: %w", folder, err)
	}
	last, err := lastSavedIndex(folder)
	if err != nil {
		return nil, err
	}
	sink := &DiskSink{folder: folder, log: log}
	sink.counter.Store(last)
	if last > 0 {
		log.Info("Resuming capture numbering", "folder", folder, "last", last)
	}
	return sink, nil
}

func lastSavedIndex(folder string) (int64, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, fmt.Errorf("failed to list save folder %s: %w", folder, err)
	}
	var last int64
	for _, entry := range entries {
		match := savedName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		if n, err := strconv.ParseInt(match[1], 10, 64); err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

func (d *DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.ArtifactDecoded)
	if !ok {
		return nil
	}

	path := filepath.Join(d.folder, d.fileName(evt.Artifact))
	if err := os.WriteFile(path, evt.Artifact.Bytes, 0o644); err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", evt.Artifact.ID, err)
	}
	d.log.Info("Artifact saved", "source", evt.Artifact.Source, "path", path, "bytes", len(evt.Artifact.Bytes))
	return nil
}

func (d *DiskSink) fileName(a domain.Artifact) string {
	label := unsafeLabel.ReplaceAllString(a.Metadata.Label, "_")
	if label == "" {
		label = domain.DefaultLabel
	}

	detected := mimetypes.ToMIME(mimetype.Detect(a.Bytes).String())
	if a.Image != nil {
		detected = mimetypes.MIME(a.Image.MIME)
	}
	return fmt.Sprintf("img_%d_%s%s", d.counter.Add(1), label, mimetypes.Extension(detected))
}
