package feed

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// timelinePreview events accompany each post in the feed.
	timelinePreview = 20
)

// Item is one feed card: the post plus its newest timeline events.
type Item struct {
	Post     *domain.Post
	Timeline []*domain.TimelineEvent
}

// Page is a cursor page of feed items, newest-updated-first. ContinueCursor
// is the updatedAt of the last item; nil when done.
type Page struct {
	Items          []Item
	ContinueCursor *time.Time
	IsDone         bool
}

// ListPostsInput pages the public feed, optionally scoped to one author.
type ListPostsInput struct {
	GithubUsername string
	Before         *time.Time
	Limit          int
}

// ListPosts serves the public timeline feed read by the UI collaborator.
type ListPosts struct {
	posts    ports.PostRepository
	timeline ports.TimelineRepository
}

// NewListPosts builds the use case.
func NewListPosts(posts ports.PostRepository, timeline ports.TimelineRepository) *ListPosts {
	return &ListPosts{posts: posts, timeline: timeline}
}

// Execute returns one page. It fetches limit+1 posts to detect the last page
// without a count query.
func (uc *ListPosts) Execute(ctx context.Context, in ListPostsInput) (*Page, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	posts, err := uc.posts.ListByUpdatedDesc(ctx, in.GithubUsername, in.Before, limit+1)
	if err != nil {
		return nil, err
	}
	isDone := len(posts) <= limit
	if !isDone {
		posts = posts[:limit]
	}

	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		timeline, err := uc.timeline.RecentByPost(ctx, post.ID, timelinePreview)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Post: post, Timeline: timeline})
	}

	page := &Page{Items: items, IsDone: isDone}
	if len(items) > 0 && !isDone {
		cursor := items[len(items)-1].Post.UpdatedAt
		page.ContinueCursor = &cursor
	}
	return page, nil
}
