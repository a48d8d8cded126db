package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

const TypeRewritePost = "post:rewrite"

// ReasonQueued is reported when the rewrite was handed to the task queue and
// will run out of band.
const ReasonQueued = "rewrite-queued"

// AsynqDispatcher pushes rewrite tasks onto Redis for the worker to process.
type AsynqDispatcher struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqDispatcher(redisOpt asynq.RedisClientOpt, log zerolog.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynq.NewClient(redisOpt), log: log}
}

func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

func (d *AsynqDispatcher) DispatchRewrite(ctx context.Context, task ports.RewriteTask) (ports.RewriteOutcome, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return ports.RewriteOutcome{}, err
	}
	_, err = d.client.EnqueueContext(ctx, asynq.NewTask(TypeRewritePost, payload))
	if err != nil {
		d.log.Warn().Err(err).Str("post_id", task.PostID.String()).Msg("enqueue rewrite failed")
		return ports.RewriteOutcome{}, err
	}
	return ports.RewriteOutcome{Rewritten: false, Reason: ReasonQueued}, nil
}

var _ ports.RewriteDispatcher = (*AsynqDispatcher)(nil)
