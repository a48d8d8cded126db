package ingest

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

// CompleteSessionResult reports whether a post existed for the session.
type CompleteSessionResult struct {
	Updated bool
}

// CompleteSession marks a session's post completed out-of-band, for bridges
// that signal session end without a final event.
type CompleteSession struct {
	posts ports.PostRepository
	now   func() time.Time
}

// NewCompleteSession builds the use case.
func NewCompleteSession(posts ports.PostRepository) *CompleteSession {
	return &CompleteSession{posts: posts, now: time.Now}
}

// Execute completes the session's post. Missing posts are not an error.
func (uc *CompleteSession) Execute(ctx context.Context, sessionID string) (*CompleteSessionResult, error) {
	updated, err := uc.posts.Complete(ctx, sessionID, uc.now())
	if err != nil {
		return nil, err
	}
	return &CompleteSessionResult{Updated: updated}, nil
}
