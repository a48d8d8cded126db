package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostID is a value object for post identity.
type PostID struct{ uuid.UUID }

// NewPostID creates a new PostID from uuid.
func NewPostID(id uuid.UUID) PostID { return PostID{UUID: id} }

// String returns the canonical string form.
func (p PostID) String() string { return p.UUID.String() }

// PostStatus is the lifecycle state of a session post. Transitions only
// active -> completed, never back.
type PostStatus string

const (
	PostStatusActive    PostStatus = "active"
	PostStatusCompleted PostStatus = "completed"
)

// Post is the per-session aggregate shown publicly: one per external session
// id, with running counters folded in from every ingested event. Counters are
// monotonically non-decreasing; LastPromptAt is the max over applied events.
type Post struct {
	ID                   PostID
	SessionID            string
	UserID               *UserID // sessions may be unauthenticated
	GithubUsername       string
	Title                string
	Description          string
	Status               PostStatus
	PromptCount          int
	TotalWords           int
	TotalLinesAdded      int
	TotalLinesRemoved    int
	AIAcceptedCount      int
	ManualOverrideCount  int
	HighRetryEventsCount int
	StartedAt            time.Time
	LastPromptAt         time.Time
	EndedAt              *time.Time
	LastRewriteAt        *time.Time
	LastRewriteProvider  string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Completed reports whether the session has ended.
func (p *Post) Completed() bool { return p.Status == PostStatusCompleted }

// EventDelta is one event's contribution to a post's counters, applied
// atomically by the store in a single read-modify-write.
type EventDelta struct {
	Timestamp      time.Time
	PromptLength   int
	LinesAdded     int
	LinesRemoved   int
	AIAccepted     bool
	ManualOverride bool
	HighRetry      bool
	MarkCompleted  bool
	Now            time.Time
}
