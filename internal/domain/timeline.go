package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventID is a value object for timeline event identity.
type EventID struct{ uuid.UUID }

// NewEventID creates a new EventID from uuid.
func NewEventID(id uuid.UUID) EventID { return EventID{UUID: id} }

// String returns the canonical string form.
func (e EventID) String() string { return e.UUID.String() }

// TimelineEvent is one immutable ingested telemetry record belonging to a
// post. ExternalID is the caller-supplied dedup key; the store enforces its
// uniqueness per session when present.
type TimelineEvent struct {
	ID                      EventID
	PostID                  PostID
	SessionID               string
	GithubUsername          string
	ExternalID              string
	Timestamp               time.Time
	PromptLength            int
	ContainsCodeBlock       bool
	ModelUsed               string
	RetryIndex              int
	TimeSinceLastPromptMs   int64
	AIEditSuggested         bool
	AIEditAccepted          bool
	ManualOverride          bool
	LinesAddedCount         int
	LinesRemovedCount       int
	RepeatedPatternDetected bool
	HighRetryRate           bool
	MicroSummary            string
	CreatedAt               time.Time
}
