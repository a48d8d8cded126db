package rewrite

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/copytext"
	"github.com/nshelia/worldcommits/internal/application/ports"
)

// Skip reasons reported in RewriteOutcome.
const (
	ReasonPolicySkip            = "rewrite-policy-skip"
	ReasonProviderNotConfigured = "provider-not-configured"
	ReasonPostNotFound          = "post-not-found"
	ReasonApplyFailed           = "apply-failed"
)

// rewriteContextWindow is how many newest timeline events are loaded for the
// rewrite; up to 3 summaries feed the fallback, up to 5 feed the prompt.
const rewriteContextWindow = 12

// Config is the explicit rewrite policy, materialized once from the
// environment at construction time.
type Config struct {
	// OnEveryPrompt forces a rewrite after every ingested event.
	OnEveryPrompt bool
	// EveryNPrompts fires at promptCount % N == 0 when N > 0.
	EveryNPrompts int
	// RandomizeProvider picks uniformly between two configured providers.
	RandomizeProvider bool
}

// Pipeline decides whether a post's copy is due for a rewrite, calls a
// text-generation provider and applies the validated result, falling back to
// the deterministic composer on any provider failure. Run never returns an
// error: every branch ends in an applied rewrite or a well-defined skip.
type Pipeline struct {
	cfg       Config
	providers []ports.CopyProvider
	posts     ports.PostRepository
	timeline  ports.TimelineRepository
	randFloat func() float64
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRandomSource overrides the provider-selection random source; tests use
// constants to force either branch.
func WithRandomSource(f func() float64) Option {
	return func(p *Pipeline) { p.randFloat = f }
}

// NewPipeline builds the pipeline. providers holds zero, one or two backends
// in preference order.
func NewPipeline(cfg Config, providers []ports.CopyProvider, posts ports.PostRepository, timeline ports.TimelineRepository, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		providers: providers,
		posts:     posts,
		timeline:  timeline,
		randFloat: rand.Float64,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShouldRewriteNow is the policy gate: completion always fires; otherwise the
// configured cadence decides.
func (p *Pipeline) ShouldRewriteNow(promptCount int, markSessionCompleted bool) bool {
	if markSessionCompleted {
		return true
	}
	if p.cfg.OnEveryPrompt {
		return true
	}
	if p.cfg.EveryNPrompts > 0 && promptCount%p.cfg.EveryNPrompts == 0 {
		return true
	}
	return false
}

// Run executes the single-shot rewrite decision for one ingested event.
func (p *Pipeline) Run(ctx context.Context, task ports.RewriteTask) ports.RewriteOutcome {
	if !p.ShouldRewriteNow(task.PromptCount, task.MarkSessionCompleted) {
		return ports.RewriteOutcome{Rewritten: false, Reason: ReasonPolicySkip}
	}

	provider := p.pickProvider()
	if provider == nil {
		return ports.RewriteOutcome{Rewritten: false, Reason: ReasonProviderNotConfigured}
	}

	post, err := p.posts.GetByID(ctx, task.PostID)
	if err != nil || post == nil {
		if err != nil {
			p.log.Warn().Err(err).Str("post_id", task.PostID.String()).Msg("load rewrite context failed")
		}
		return ports.RewriteOutcome{Rewritten: false, Reason: ReasonPostNotFound}
	}
	recent, err := p.timeline.RecentByPost(ctx, task.PostID, rewriteContextWindow)
	if err != nil {
		p.log.Warn().Err(err).Str("post_id", task.PostID.String()).Msg("load rewrite timeline failed")
		return ports.RewriteOutcome{Rewritten: false, Reason: ReasonPostNotFound}
	}
	summaries := make([]string, 0, len(recent))
	for _, ev := range recent {
		summaries = append(summaries, ev.MicroSummary)
	}

	// The fallback is computed before any provider call so a provider failure
	// never blocks producing valid copy.
	fallback := copytext.Compose(copytext.ComposeInput{
		GithubUsername:       post.GithubUsername,
		PromptCount:          post.PromptCount,
		HighRetryEventsCount: post.HighRetryEventsCount,
		ManualOverrideCount:  post.ManualOverrideCount,
		TotalLinesAdded:      post.TotalLinesAdded,
		TotalLinesRemoved:    post.TotalLinesRemoved,
		RecentSummaries:      copytext.RecentSummaries(summaries, 3),
	})

	prompt := buildRewritePrompt(promptInput{
		GithubUsername:       post.GithubUsername,
		PromptCount:          post.PromptCount,
		TotalWords:           post.TotalWords,
		TotalLinesAdded:      post.TotalLinesAdded,
		TotalLinesRemoved:    post.TotalLinesRemoved,
		AIAcceptedCount:      post.AIAcceptedCount,
		ManualOverrideCount:  post.ManualOverrideCount,
		HighRetryEventsCount: post.HighRetryEventsCount,
		TimelineSummaries:    copytext.RecentSummaries(summaries, 5),
	})

	result := fallback
	text, err := provider.Generate(ctx, prompt)
	if err != nil {
		p.log.Warn().Err(err).Str("provider", provider.Name()).Msg("copy provider failed, using fallback")
	} else if parsed := parseCopyJSON(text); parsed != nil {
		result = *parsed
	}

	err = p.posts.ApplyRewrite(ctx, task.PostID,
		copytext.Truncate(result.Title, copytext.MaxTitleLength),
		copytext.Truncate(result.Description, copytext.MaxDescriptionLength),
		provider.Name(), p.now())
	if err != nil {
		p.log.Error().Err(err).Str("post_id", task.PostID.String()).Msg("apply rewritten copy failed")
		return ports.RewriteOutcome{Rewritten: false, Reason: ReasonApplyFailed}
	}
	return ports.RewriteOutcome{Rewritten: true, Provider: provider.Name()}
}

// pickProvider prefers the first configured backend; with two configured and
// randomization on, it chooses uniformly per invocation.
func (p *Pipeline) pickProvider() ports.CopyProvider {
	switch len(p.providers) {
	case 0:
		return nil
	case 1:
		return p.providers[0]
	default:
		if p.cfg.RandomizeProvider {
			if p.randFloat() > 0.5 {
				return p.providers[0]
			}
			return p.providers[1]
		}
		return p.providers[0]
	}
}
