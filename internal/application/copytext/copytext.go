// Package copytext derives the public title/description pair for a post from
// its counters and recent timeline summaries. It is pure and deterministic:
// the ingestor uses it for the default copy and the rewrite pipeline reuses it
// unmodified as the provider-failure fallback.
package copytext

import (
	"fmt"
	"regexp"
	"strings"
)

// Length caps for stored copy and micro-summaries.
const (
	MaxMicroSummaryLength = 300
	MaxTitleLength        = 90
	MaxDescriptionLength  = 280
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	whitespaceRe = regexp.MustCompile(`\s+`)
	pathLikeRe   = regexp.MustCompile(`\b(?:[A-Za-z]:)?/?[\w.-]+(?:/[\w.-]+)+\b`)
)

// SanitizeMicroSummary strips fenced code blocks, collapses whitespace,
// redacts path-like tokens and caps the result. Idempotent.
func SanitizeMicroSummary(summary string) string {
	s := fencedCodeRe.ReplaceAllString(summary, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = pathLikeRe.ReplaceAllString(s, "[path]")
	return strings.TrimSpace(Truncate(strings.TrimSpace(s), MaxMicroSummaryLength))
}

// Truncate caps s at n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Copy is the title/description pair shown for a post.
type Copy struct {
	Title       string
	Description string
}

// ComposeInput carries the aggregate counters and up to three recent
// non-empty micro-summaries.
type ComposeInput struct {
	GithubUsername       string
	PromptCount          int
	HighRetryEventsCount int
	ManualOverrideCount  int
	TotalLinesAdded      int
	TotalLinesRemoved    int
	RecentSummaries      []string
}

// Compose derives copy from aggregate state. The title encodes the session's
// dominant intent and retry pressure; the description prefers recent
// summaries and falls back to a counter digest.
func Compose(in ComposeInput) Copy {
	pressure := "steady"
	if in.HighRetryEventsCount > 2 {
		pressure = "high"
	}
	intent := "ai-guided iteration"
	if float64(in.ManualOverrideCount) > float64(in.PromptCount)/2 {
		intent = "manual-heavy iteration"
	}
	title := fmt.Sprintf("%s · %s · %s pressure", in.GithubUsername, intent, pressure)

	description := fmt.Sprintf("Prompts: %d. Lines +%d / -%d.", in.PromptCount, in.TotalLinesAdded, in.TotalLinesRemoved)
	if len(in.RecentSummaries) > 0 {
		description = Truncate(strings.Join(in.RecentSummaries, " "), MaxMicroSummaryLength)
	}
	return Copy{Title: title, Description: description}
}

// RecentSummaries extracts up to max non-empty summaries from newest-first
// timeline micro-summaries.
func RecentSummaries(summaries []string, max int) []string {
	out := make([]string, 0, max)
	for _, s := range summaries {
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
