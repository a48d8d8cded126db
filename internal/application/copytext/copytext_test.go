package copytext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMicroSummaryStripsFencedCode(t *testing.T) {
	in := "refactored the parser ```func main() {}``` and added tests"
	got := SanitizeMicroSummary(in)
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "func main")
	assert.Contains(t, got, "refactored the parser")
	assert.Contains(t, got, "added tests")
}

func TestSanitizeMicroSummaryRedactsPaths(t *testing.T) {
	in := "edited internal/server/handler.go and /etc/passwd"
	got := SanitizeMicroSummary(in)
	assert.NotContains(t, got, "handler.go")
	assert.NotContains(t, got, "/etc/passwd")
	assert.Contains(t, got, "[path]")
}

func TestSanitizeMicroSummaryCollapsesWhitespace(t *testing.T) {
	got := SanitizeMicroSummary("a\n\n  b\t\tc")
	assert.Equal(t, "a b c", got)
}

func TestSanitizeMicroSummaryCapsLength(t *testing.T) {
	got := SanitizeMicroSummary(strings.Repeat("x", 2*MaxMicroSummaryLength))
	assert.Len(t, got, MaxMicroSummaryLength)
}

func TestSanitizeMicroSummaryIdempotent(t *testing.T) {
	inputs := []string{
		"plain summary",
		"with ```code``` block",
		"touched src/app/main.go twice",
		strings.Repeat("long ", 100),
	}
	for _, in := range inputs {
		once := SanitizeMicroSummary(in)
		assert.Equal(t, once, SanitizeMicroSummary(once))
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "hél", Truncate("héllo", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestComposeTitleIntentAndPressure(t *testing.T) {
	c := Compose(ComposeInput{
		GithubUsername:       "alice",
		PromptCount:          4,
		HighRetryEventsCount: 0,
		ManualOverrideCount:  0,
	})
	assert.Equal(t, "alice · ai-guided iteration · steady pressure", c.Title)

	c = Compose(ComposeInput{
		GithubUsername:       "alice",
		PromptCount:          4,
		HighRetryEventsCount: 3,
		ManualOverrideCount:  3,
	})
	assert.Equal(t, "alice · manual-heavy iteration · high pressure", c.Title)
}

func TestComposeManualHeavyNeedsMajority(t *testing.T) {
	// Exactly half is not manual-heavy.
	c := Compose(ComposeInput{GithubUsername: "bob", PromptCount: 4, ManualOverrideCount: 2})
	assert.Contains(t, c.Title, "ai-guided iteration")

	c = Compose(ComposeInput{GithubUsername: "bob", PromptCount: 4, ManualOverrideCount: 3})
	assert.Contains(t, c.Title, "manual-heavy iteration")
}

func TestComposeDescriptionPrefersSummaries(t *testing.T) {
	c := Compose(ComposeInput{
		GithubUsername:  "alice",
		PromptCount:     2,
		RecentSummaries: []string{"wired the cache", "fixed the tests"},
	})
	assert.Equal(t, "wired the cache fixed the tests", c.Description)
}

func TestComposeDescriptionFallsBackToCounters(t *testing.T) {
	c := Compose(ComposeInput{
		GithubUsername:    "alice",
		PromptCount:       3,
		TotalLinesAdded:   10,
		TotalLinesRemoved: 4,
	})
	assert.Equal(t, "Prompts: 3. Lines +10 / -4.", c.Description)
}

func TestRecentSummariesSkipsEmptyAndCaps(t *testing.T) {
	got := RecentSummaries([]string{"", "a", "", "b", "c", "d"}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	assert.Empty(t, RecentSummaries([]string{"", ""}, 3))
}
