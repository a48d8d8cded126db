package ports

import (
	"context"

	"github.com/nshelia/worldcommits/internal/domain"
)

// RewriteTask asks the rewrite pipeline to reconsider a post's copy after an
// ingested event.
type RewriteTask struct {
	PostID               domain.PostID `json:"post_id"`
	PromptCount          int           `json:"prompt_count"`
	MarkSessionCompleted bool          `json:"mark_session_completed"`
}

// RewriteOutcome reports what the pipeline (or dispatcher) did, for
// observability. Exactly one of Provider or Reason is set.
type RewriteOutcome struct {
	Rewritten bool   `json:"rewritten"`
	Provider  string `json:"provider,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RewriteDispatcher hands a rewrite task to the pipeline, either inline
// (awaited) or through a durable task queue. Dispatch errors are non-fatal to
// ingestion: the post keeps its ingestion-time copy, which is always valid.
type RewriteDispatcher interface {
	DispatchRewrite(ctx context.Context, task RewriteTask) (RewriteOutcome, error)
}
