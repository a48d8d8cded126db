package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nshelia/worldcommits/internal/application/copytext"
	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

// recentSummaryWindow is how many newest timeline events feed the ingestion
// time copy refresh; up to three non-empty summaries are used.
const recentSummaryWindow = 4

// EventInput is one telemetry event from the tool-call bridge. EventID is the
// optional caller-supplied dedup key.
type EventInput struct {
	SessionID               string
	EventID                 string
	UserID                  *domain.UserID
	GithubUsername          string
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
	MarkSessionCompleted    bool
}

// EventResult is what the bridge gets back: the owning post and its state
// after this event. Deduplicated means the event was a replay and changed
// nothing.
type EventResult struct {
	PostID               domain.PostID
	PromptCount          int
	MarkSessionCompleted bool
	Deduplicated         bool
}

// IngestEvent finds-or-creates the session's post, appends the immutable
// timeline record and folds the event into the aggregate.
type IngestEvent struct {
	posts    ports.PostRepository
	timeline ports.TimelineRepository
	now      func() time.Time
}

// NewIngestEvent builds the use case.
func NewIngestEvent(posts ports.PostRepository, timeline ports.TimelineRepository) *IngestEvent {
	return &IngestEvent{posts: posts, timeline: timeline, now: time.Now}
}

// Execute runs the ingestion steps: sanitize, find-or-create, append,
// atomically fold counters, refresh copy. Two concurrent events for the same
// session both land because the counter fold is a single store-side
// read-modify-write.
func (uc *IngestEvent) Execute(ctx context.Context, in EventInput) (*EventResult, error) {
	now := uc.now()
	safeSummary := copytext.SanitizeMicroSummary(in.MicroSummary)

	post, err := uc.posts.GetBySessionID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	var postID domain.PostID
	if post == nil {
		postID = domain.NewPostID(uuid.New())
		err := uc.posts.Create(ctx, uc.newPost(postID, in, safeSummary, now))
		switch {
		case errors.Is(err, domerrors.ErrDuplicateSession):
			// Lost a concurrent first-event race; fold into the winner's post.
			winner, err := uc.posts.GetBySessionID(ctx, in.SessionID)
			if err != nil {
				return nil, err
			}
			if winner == nil {
				return nil, fmt.Errorf("post for session %s vanished after create conflict", in.SessionID)
			}
			postID = winner.ID
		case err != nil:
			return nil, err
		}
	} else {
		postID = post.ID
	}

	err = uc.timeline.Append(ctx, &domain.TimelineEvent{
		ID:                      domain.NewEventID(uuid.New()),
		PostID:                  postID,
		SessionID:               in.SessionID,
		GithubUsername:          in.GithubUsername,
		ExternalID:              in.EventID,
		Timestamp:               in.Timestamp,
		PromptLength:            in.PromptLength,
		ContainsCodeBlock:       in.ContainsCodeBlock,
		ModelUsed:               in.ModelUsed,
		RetryIndex:              in.RetryIndex,
		TimeSinceLastPromptMs:   in.TimeSinceLastPromptMs,
		AIEditSuggested:         in.AIEditSuggested,
		AIEditAccepted:          in.AIEditAccepted,
		ManualOverride:          in.ManualOverride,
		LinesAddedCount:         in.LinesAddedCount,
		LinesRemovedCount:       in.LinesRemovedCount,
		RepeatedPatternDetected: in.RepeatedPatternDetected,
		HighRetryRate:           in.HighRetryRate,
		MicroSummary:            safeSummary,
		CreatedAt:               now,
	})
	if errors.Is(err, domerrors.ErrDuplicateEvent) {
		return uc.duplicateResult(ctx, postID)
	}
	if err != nil {
		return nil, err
	}

	updated, err := uc.posts.ApplyEvent(ctx, postID, domain.EventDelta{
		Timestamp:      in.Timestamp,
		PromptLength:   in.PromptLength,
		LinesAdded:     in.LinesAddedCount,
		LinesRemoved:   in.LinesRemovedCount,
		AIAccepted:     in.AIEditAccepted,
		ManualOverride: in.ManualOverride,
		HighRetry:      in.HighRetryRate,
		MarkCompleted:  in.MarkSessionCompleted,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Unreachable under correct storage isolation: the post existed moments
		// ago and posts are never deleted.
		return nil, fmt.Errorf("post %s vanished after event append", postID)
	}

	recent, err := uc.timeline.RecentByPost(ctx, postID, recentSummaryWindow)
	if err != nil {
		return nil, err
	}
	summaries := make([]string, 0, len(recent))
	for _, ev := range recent {
		summaries = append(summaries, ev.MicroSummary)
	}
	refreshed := copytext.Compose(copytext.ComposeInput{
		GithubUsername:       updated.GithubUsername,
		PromptCount:          updated.PromptCount,
		HighRetryEventsCount: updated.HighRetryEventsCount,
		ManualOverrideCount:  updated.ManualOverrideCount,
		TotalLinesAdded:      updated.TotalLinesAdded,
		TotalLinesRemoved:    updated.TotalLinesRemoved,
		RecentSummaries:      copytext.RecentSummaries(summaries, 3),
	})
	if err := uc.posts.UpdateCopy(ctx, postID, refreshed.Title, refreshed.Description, now); err != nil {
		return nil, err
	}

	return &EventResult{
		PostID:               postID,
		PromptCount:          updated.PromptCount,
		MarkSessionCompleted: in.MarkSessionCompleted,
	}, nil
}

// newPost seeds a post from its first event. Counters start at zero: the
// ApplyEvent fold that follows the timeline append accounts for this event,
// so N ingested events always leave promptCount == N. The initial copy treats
// the event as sole history.
func (uc *IngestEvent) newPost(postID domain.PostID, in EventInput, safeSummary string, now time.Time) *domain.Post {
	var recent []string
	if safeSummary != "" {
		recent = []string{safeSummary}
	}
	highRetry := 0
	if in.HighRetryRate {
		highRetry = 1
	}
	manual := 0
	if in.ManualOverride {
		manual = 1
	}
	initial := copytext.Compose(copytext.ComposeInput{
		GithubUsername:       in.GithubUsername,
		PromptCount:          1,
		HighRetryEventsCount: highRetry,
		ManualOverrideCount:  manual,
		TotalLinesAdded:      in.LinesAddedCount,
		TotalLinesRemoved:    in.LinesRemovedCount,
		RecentSummaries:      recent,
	})
	status := domain.PostStatusActive
	if in.MarkSessionCompleted {
		status = domain.PostStatusCompleted
	}
	return &domain.Post{
		ID:             postID,
		SessionID:      in.SessionID,
		UserID:         in.UserID,
		GithubUsername: in.GithubUsername,
		Title:          initial.Title,
		Description:    initial.Description,
		Status:         status,
		StartedAt:      in.Timestamp,
		LastPromptAt:   in.Timestamp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// duplicateResult reports the post's current state for a replayed event.
func (uc *IngestEvent) duplicateResult(ctx context.Context, postID domain.PostID) (*EventResult, error) {
	post, err := uc.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %s vanished after duplicate event", postID)
	}
	return &EventResult{
		PostID:               postID,
		PromptCount:          post.PromptCount,
		MarkSessionCompleted: post.Completed(),
		Deduplicated:         true,
	}, nil
}
