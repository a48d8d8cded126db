package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/application/rewrite"
)

// Worker consumes rewrite tasks from Redis and runs the pipeline.
type Worker struct {
	srv      *asynq.Server
	mux      *asynq.ServeMux
	pipeline *rewrite.Pipeline
	log      zerolog.Logger
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, pipeline *rewrite.Pipeline, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, pipeline: pipeline, log: log}
	mux.HandleFunc(TypeRewritePost, w.handleRewritePost)
	return w
}

func (w *Worker) handleRewritePost(ctx context.Context, t *asynq.Task) error {
	var task ports.RewriteTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.log.Error().Err(err).Msg("rewrite task payload invalid")
		return err
	}
	outcome := w.pipeline.Run(ctx, task)
	w.log.Info().
		Str("post_id", task.PostID.String()).
		Bool("rewritten", outcome.Rewritten).
		Str("provider", outcome.Provider).
		Str("reason", outcome.Reason).
		Msg("rewrite task processed")
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
