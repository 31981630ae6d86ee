package event

import (
	"cam-relay/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	SourceID() domain.SourceID
}

// ProgressUpdated carries Received/Expected as an unclamped fraction.
type ProgressUpdated struct {
	Source   domain.SourceID
	Fraction float64
	Received int
	Expected int
	At       time.Time
}

func (p ProgressUpdated) SourceID() domain.SourceID { return p.Source }

type StatusChanged struct {
	Source domain.SourceID
	Status domain.Status
	Err    error
	At     time.Time
}

func (s StatusChanged) SourceID() domain.SourceID { return s.Source }

// Text renders the status the way it is shown to an operator, e.g. "Error: no data".
func (s StatusChanged) Text() string {
	if s.Status == domain.StatusError && s.Err != nil {
		return fmt.Sprintf("%s: %s", s.Status, s.Err)
	}
	return s.Status.String()
}

// FragmentsMissing carries the first missing indices and the total Count.
type FragmentsMissing struct {
	Source   domain.SourceID
	Missing  []int
	Count    int
	Expected int
	At       time.Time
}

func (f FragmentsMissing) SourceID() domain.SourceID { return f.Source }

type ArtifactDecoded struct {
	JobID    uuid.UUID
	Artifact domain.Artifact
}

func (a ArtifactDecoded) SourceID() domain.SourceID { return a.Artifact.Source }

type DeviceSeen struct {
	Source   domain.SourceID
	ClientID string
	IP       string
	Status   string
	At       time.Time
}

func (d DeviceSeen) SourceID() domain.SourceID { return d.Source }
