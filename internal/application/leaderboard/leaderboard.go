package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

// maxEntries returned per query.
const maxEntries = 100

// TimeRange selects the aggregation window.
type TimeRange string

const (
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeAll   TimeRange = "all"
)

// SortBy selects the ranking metric.
type SortBy string

const (
	SortPrompts  SortBy = "prompts"
	SortWords    SortBy = "words"
	SortLines    SortBy = "lines"
	SortSessions SortBy = "sessions"
)

// Entry is a derived per-author rollup across all their posts in the window.
// Recomputed on every query; nothing is materialized.
type Entry struct {
	GithubUsername    string
	TotalPrompts      int
	TotalLinesAdded   int
	TotalLinesRemoved int
	TotalWords        int
	SessionCount      int
	LastActiveAt      time.Time
	Country           string
}

// Cutoff computes the window start for a range relative to now, in now's
// location: today = midnight, week = most recent Monday midnight, month =
// first of the month. Nil means no cutoff.
func Cutoff(timeRange TimeRange, now time.Time) *time.Time {
	year, month, day := now.Date()
	loc := now.Location()
	switch timeRange {
	case RangeToday:
		t := time.Date(year, month, day, 0, 0, 0, 0, loc)
		return &t
	case RangeWeek:
		diff := int(now.Weekday()) - 1
		if now.Weekday() == time.Sunday {
			diff = 6
		}
		t := time.Date(year, month, day-diff, 0, 0, 0, 0, loc)
		return &t
	case RangeMonth:
		t := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return &t
	default:
		return nil
	}
}

// QueryInput selects window, optional country filter and ranking metric.
// Zero values mean all-time, no filter, ranked by prompts.
type QueryInput struct {
	TimeRange TimeRange
	Country   string
	SortBy    SortBy
}

// Query scans all posts, buckets by window and country, groups by author and
// ranks by the selected metric.
type Query struct {
	posts ports.PostRepository
	users ports.UserRepository
	now   func() time.Time
}

// NewQuery builds the use case.
func NewQuery(posts ports.PostRepository, users ports.UserRepository) *Query {
	return &Query{posts: posts, users: users, now: time.Now}
}

// Execute returns the top 100 entries. A country filter matching no users
// yields an empty result, not an error. Ties keep grouping order.
func (uc *Query) Execute(ctx context.Context, in QueryInput) ([]Entry, error) {
	if in.TimeRange == "" {
		in.TimeRange = RangeAll
	}
	if in.SortBy == "" {
		in.SortBy = SortPrompts
	}

	var allowed map[string]struct{}
	if in.Country != "" {
		handles, err := uc.users.HandlesByCountry(ctx, in.Country)
		if err != nil {
			return nil, err
		}
		allowed = make(map[string]struct{}, len(handles))
		for _, h := range handles {
			if h != "" {
				allowed[h] = struct{}{}
			}
		}
	}

	cutoff := Cutoff(in.TimeRange, uc.now())
	posts, err := uc.posts.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*Entry)
	order := make([]string, 0)
	for _, post := range posts {
		if allowed != nil {
			if _, ok := allowed[post.GithubUsername]; !ok {
				continue
			}
		}
		entry, ok := grouped[post.GithubUsername]
		if !ok {
			entry = &Entry{GithubUsername: post.GithubUsername}
			grouped[post.GithubUsername] = entry
			order = append(order, post.GithubUsername)
		}
		entry.TotalPrompts += post.PromptCount
		entry.TotalLinesAdded += post.TotalLinesAdded
		entry.TotalLinesRemoved += post.TotalLinesRemoved
		entry.TotalWords += post.TotalWords
		entry.SessionCount++
		if post.LastPromptAt.After(entry.LastActiveAt) {
			entry.LastActiveAt = post.LastPromptAt
		}
	}

	entries := make([]Entry, 0, len(grouped))
	for _, handle := range order {
		entries = append(entries, *grouped[handle])
	}
	metric := metricFunc(in.SortBy)
	sort.SliceStable(entries, func(i, j int) bool {
		return metric(entries[i]) > metric(entries[j])
	})
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	for i := range entries {
		user, err := uc.users.GetByUsername(ctx, entries[i].GithubUsername)
		if err != nil {
			return nil, err
		}
		if user != nil {
			entries[i].Country = user.Country
		}
	}
	return entries, nil
}

// ListCountries returns the sorted set of countries configured across users.
func (uc *Query) ListCountries(ctx context.Context) ([]string, error) {
	return uc.users.ListCountries(ctx)
}

func metricFunc(sortBy SortBy) func(Entry) int {
	switch sortBy {
	case SortWords:
		return func(e Entry) int { return e.TotalWords }
	case SortLines:
		return func(e Entry) int { return e.TotalLinesAdded + e.TotalLinesRemoved }
	case SortSessions:
		return func(e Entry) int { return e.SessionCount }
	default:
		return func(e Entry) int { return e.TotalPrompts }
	}
}
