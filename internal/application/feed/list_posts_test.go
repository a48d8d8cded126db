package feed

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshelia/worldcommits/internal/domain"
)

type fakePostRepo struct {
	posts []*domain.Post
}

func (r *fakePostRepo) Create(ctx context.Context, post *domain.Post) error { return nil }

func (r *fakePostRepo) GetByID(ctx context.Context, postID domain.PostID) (*domain.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) ApplyEvent(ctx context.Context, postID domain.PostID, delta domain.EventDelta) (*domain.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) UpdateCopy(ctx context.Context, postID domain.PostID, title, description string, at time.Time) error {
	return nil
}

func (r *fakePostRepo) ApplyRewrite(ctx context.Context, postID domain.PostID, title, description, provider string, at time.Time) error {
	return nil
}

func (r *fakePostRepo) Complete(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	return false, nil
}

func (r *fakePostRepo) ListSince(ctx context.Context, cutoff *time.Time) ([]*domain.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) ListByUpdatedDesc(ctx context.Context, githubUsername string, before *time.Time, limit int) ([]*domain.Post, error) {
	var out []*domain.Post
	for _, post := range r.posts {
		if githubUsername != "" && post.GithubUsername != githubUsername {
			continue
		}
		if before != nil && !post.UpdatedAt.Before(*before) {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) CountDistinctAuthors(ctx context.Context) (int, error) { return 0, nil }

type fakeTimelineRepo struct {
	byPost map[domain.PostID][]*domain.TimelineEvent
}

func (r *fakeTimelineRepo) Append(ctx context.Context, event *domain.TimelineEvent) error {
	return nil
}

func (r *fakeTimelineRepo) RecentByPost(ctx context.Context, postID domain.PostID, limit int) ([]*domain.TimelineEvent, error) {
	events := r.byPost[postID]
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *fakeTimelineRepo) ActivitySince(ctx context.Context, since time.Time) (int, int, error) {
	return 0, 0, nil
}

func seedPosts(n int, user string, base time.Time) []*domain.Post {
	posts := make([]*domain.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, &domain.Post{
			ID:             domain.NewPostID(uuid.New()),
			SessionID:      uuid.NewString(),
			GithubUsername: user,
			UpdatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return posts
}

func TestListPostsFirstPage(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakePostRepo{posts: seedPosts(30, "alice", base)}
	uc := NewListPosts(repo, &fakeTimelineRepo{})

	page, err := uc.Execute(context.Background(), ListPostsInput{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.False(t, page.IsDone)
	require.NotNil(t, page.ContinueCursor)

	// Newest first; the cursor is the oldest item on the page.
	assert.Equal(t, base.Add(29*time.Minute), page.Items[0].Post.UpdatedAt)
	assert.Equal(t, base.Add(20*time.Minute), *page.ContinueCursor)
}

func TestListPostsPagesToEnd(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakePostRepo{posts: seedPosts(25, "alice", base)}
	uc := NewListPosts(repo, &fakeTimelineRepo{})

	var seen int
	var cursor *time.Time
	for {
		page, err := uc.Execute(context.Background(), ListPostsInput{Limit: 10, Before: cursor})
		require.NoError(t, err)
		seen += len(page.Items)
		if page.IsDone {
			assert.Nil(t, page.ContinueCursor)
			break
		}
		cursor = page.ContinueCursor
	}
	assert.Equal(t, 25, seen)
}

func TestListPostsFiltersByAuthor(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakePostRepo{posts: append(seedPosts(3, "alice", base), seedPosts(2, "bob", base.Add(time.Hour))...)}
	uc := NewListPosts(repo, &fakeTimelineRepo{})

	page, err := uc.Execute(context.Background(), ListPostsInput{GithubUsername: "bob"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.IsDone)
	for _, item := range page.Items {
		assert.Equal(t, "bob", item.Post.GithubUsername)
	}
}

func TestListPostsClampsLimit(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakePostRepo{posts: seedPosts(100, "alice", base)}
	uc := NewListPosts(repo, &fakeTimelineRepo{})

	page, err := uc.Execute(context.Background(), ListPostsInput{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, maxPageSize)
}

func TestListPostsAttachesTimelinePreview(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := seedPosts(1, "alice", base)
	timeline := &fakeTimelineRepo{byPost: map[domain.PostID][]*domain.TimelineEvent{
		posts[0].ID: {
			{ID: domain.NewEventID(uuid.New()), PostID: posts[0].ID, MicroSummary: "wired the cache"},
		},
	}}
	uc := NewListPosts(&fakePostRepo{posts: posts}, timeline)

	page, err := uc.Execute(context.Background(), ListPostsInput{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Len(t, page.Items[0].Timeline, 1)
	assert.Equal(t, "wired the cache", page.Items[0].Timeline[0].MicroSummary)
}
