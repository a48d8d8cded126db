package queue

import (
	"context"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/application/rewrite"
)

// InlineDispatcher runs the rewrite pipeline synchronously in the request
// path, for deployments without Redis.
type InlineDispatcher struct {
	pipeline *rewrite.Pipeline
}

func NewInlineDispatcher(pipeline *rewrite.Pipeline) *InlineDispatcher {
	return &InlineDispatcher{pipeline: pipeline}
}

func (d *InlineDispatcher) DispatchRewrite(ctx context.Context, task ports.RewriteTask) (ports.RewriteOutcome, error) {
	return d.pipeline.Run(ctx, task), nil
}

var _ ports.RewriteDispatcher = (*InlineDispatcher)(nil)
