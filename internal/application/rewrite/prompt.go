package rewrite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nshelia/worldcommits/internal/application/copytext"
)

type promptInput struct {
	GithubUsername       string
	PromptCount          int
	TotalWords           int
	TotalLinesAdded      int
	TotalLinesRemoved    int
	AIAcceptedCount      int
	ManualOverrideCount  int
	HighRetryEventsCount int
	TimelineSummaries    []string
}

// buildRewritePrompt renders the plain-text instruction block sent to the
// provider. The model is told to return strict JSON with hard length caps and
// no code, filenames or secrets.
func buildRewritePrompt(in promptInput) string {
	summaries, _ := json.Marshal(in.TimelineSummaries)
	return strings.TrimSpace(fmt.Sprintf(`
You write short public feed copy for coding session telemetry.
Return strict JSON only: {"title":"...","description":"..."}.
Rules:
- title <= %d chars
- description <= %d chars
- no code, no file names, no stack traces, no secrets
- concrete and readable

Telemetry:
githubUsername=%s
promptCount=%d
totalWords=%d
totalLinesAdded=%d
totalLinesRemoved=%d
aiAcceptedCount=%d
manualOverrideCount=%d
highRetryEventsCount=%d
timelineSummaries=%s`,
		copytext.MaxTitleLength, copytext.MaxDescriptionLength,
		in.GithubUsername, in.PromptCount, in.TotalWords,
		in.TotalLinesAdded, in.TotalLinesRemoved, in.AIAcceptedCount,
		in.ManualOverrideCount, in.HighRetryEventsCount, summaries))
}

// parseCopyJSON extracts the first {...} block from raw model output and
// requires string title and description. Any parse or shape failure yields
// nil ("no result"), which sends the pipeline to its fallback.
func parseCopyJSON(text string) *copytext.Copy {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	var parsed struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err != nil {
		return nil
	}
	if parsed.Title == nil || parsed.Description == nil {
		return nil
	}
	return &copytext.Copy{
		Title:       copytext.Truncate(*parsed.Title, copytext.MaxTitleLength),
		Description: copytext.Truncate(*parsed.Description, copytext.MaxDescriptionLength),
	}
}
