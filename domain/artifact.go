package domain

import (
	"time"

	"github.com/google/uuid"
)

type ArtifactKind int

const (
	KindOpaqueBytes ArtifactKind = iota
	KindImage
)

func (k ArtifactKind) String() string {
	if k == KindImage {
		return "Image"
	}
	return "OpaqueBytes"
}

// ImageInfo is the container metadata inferred during validation.
type ImageInfo struct {
	Format string
	MIME   string
	Width  int
	Height int
}

// Decoded is the output of the decode pipeline before it is bound to a source.
type Decoded struct {
	Bytes []byte
	Kind  ArtifactKind
	Image *ImageInfo
}

// Artifact is a decoded payload handed to the sinks. It is never mutated after creation.
type Artifact struct {
	ID        uuid.UUID
	Source    SourceID
	Bytes     []byte
	Kind      ArtifactKind
	Image     *ImageInfo
	Metadata  CaptureMetadata
	DecodedAt time.Time
}

// DecodeJob is a complete buffer waiting for the decode pipeline.
type DecodeJob struct {
	ID         uuid.UUID
	Source     SourceID
	Payload    []byte
	Metadata   CaptureMetadata
	ReceivedAt time.Time
}
