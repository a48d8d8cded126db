package leaderboard

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

// liveWindow is the trailing activity window for live stats.
const liveWindow = 10 * time.Minute

// LiveStatsResult is the activity snapshot shown on the public banner.
type LiveStatsResult struct {
	ActiveVibecoders int
	RecentPrompts    int
	TotalRegistered  int
}

// LiveStats counts distinct authors and events in a trailing ten-minute
// window, plus total distinct authors across all posts.
type LiveStats struct {
	posts    ports.PostRepository
	timeline ports.TimelineRepository
	now      func() time.Time
}

// NewLiveStats builds the use case.
func NewLiveStats(posts ports.PostRepository, timeline ports.TimelineRepository) *LiveStats {
	return &LiveStats{posts: posts, timeline: timeline, now: time.Now}
}

// Execute computes the snapshot.
func (uc *LiveStats) Execute(ctx context.Context) (*LiveStatsResult, error) {
	events, authors, err := uc.timeline.ActivitySince(ctx, uc.now().Add(-liveWindow))
	if err != nil {
		return nil, err
	}
	registered, err := uc.posts.CountDistinctAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return &LiveStatsResult{
		ActiveVibecoders: authors,
		RecentPrompts:    events,
		TotalRegistered:  registered,
	}, nil
}
