package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshelia/worldcommits/internal/application/ingest"
	"github.com/nshelia/worldcommits/internal/application/keys"
	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

type memPostRepo struct {
	posts map[domain.PostID]*domain.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[domain.PostID]*domain.Post)}
}

func (r *memPostRepo) Create(ctx context.Context, post *domain.Post) error {
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *memPostRepo) GetByID(ctx context.Context, postID domain.PostID) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *memPostRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Post, error) {
	for _, post := range r.posts {
		if post.SessionID == sessionID {
			cp := *post
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPostRepo) ApplyEvent(ctx context.Context, postID domain.PostID, delta domain.EventDelta) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, nil
	}
	post.PromptCount++
	post.TotalWords += delta.PromptLength
	post.TotalLinesAdded += delta.LinesAdded
	post.TotalLinesRemoved += delta.LinesRemoved
	if delta.Timestamp.After(post.LastPromptAt) {
		post.LastPromptAt = delta.Timestamp
	}
	if delta.MarkCompleted {
		post.Status = domain.PostStatusCompleted
	}
	post.UpdatedAt = delta.Now
	cp := *post
	return &cp, nil
}

func (r *memPostRepo) UpdateCopy(ctx context.Context, postID domain.PostID, title, description string, at time.Time) error {
	if post, ok := r.posts[postID]; ok {
		post.Title = title
		post.Description = description
	}
	return nil
}

func (r *memPostRepo) ApplyRewrite(ctx context.Context, postID domain.PostID, title, description, provider string, at time.Time) error {
	return nil
}

func (r *memPostRepo) Complete(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	for _, post := range r.posts {
		if post.SessionID == sessionID {
			post.Status = domain.PostStatusCompleted
			return true, nil
		}
	}
	return false, nil
}

func (r *memPostRepo) ListSince(ctx context.Context, cutoff *time.Time) ([]*domain.Post, error) {
	return nil, nil
}

func (r *memPostRepo) ListByUpdatedDesc(ctx context.Context, githubUsername string, before *time.Time, limit int) ([]*domain.Post, error) {
	return nil, nil
}

func (r *memPostRepo) CountDistinctAuthors(ctx context.Context) (int, error) { return 0, nil }

type memTimelineRepo struct {
	events []*domain.TimelineEvent
}

func (r *memTimelineRepo) Append(ctx context.Context, event *domain.TimelineEvent) error {
	if event.ExternalID != "" {
		for _, existing := range r.events {
			if existing.SessionID == event.SessionID && existing.ExternalID == event.ExternalID {
				return domerrors.ErrDuplicateEvent
			}
		}
	}
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *memTimelineRepo) RecentByPost(ctx context.Context, postID domain.PostID, limit int) ([]*domain.TimelineEvent, error) {
	var out []*domain.TimelineEvent
	for _, event := range r.events {
		if event.PostID == postID {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTimelineRepo) ActivitySince(ctx context.Context, since time.Time) (int, int, error) {
	return 0, 0, nil
}

type memKeyRepo struct {
	keys map[domain.KeyID]*domain.APIKey
}

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{keys: make(map[domain.KeyID]*domain.APIKey)}
}

func (r *memKeyRepo) Create(ctx context.Context, key *domain.APIKey) error {
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *memKeyRepo) GetByID(ctx context.Context, keyID domain.KeyID) (*domain.APIKey, error) {
	key, ok := r.keys[keyID]
	if !ok {
		return nil, nil
	}
	cp := *key
	return &cp, nil
}

func (r *memKeyRepo) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	for _, key := range r.keys {
		if key.KeyHash == keyHash {
			cp := *key
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memKeyRepo) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error) {
	return nil, nil
}

func (r *memKeyRepo) Revoke(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	if key, ok := r.keys[keyID]; ok {
		key.RevokedAt = &at
	}
	return nil
}

func (r *memKeyRepo) Touch(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	if key, ok := r.keys[keyID]; ok {
		key.LastUsedAt = &at
	}
	return nil
}

type memUserRepo struct {
	users map[domain.UserID]*domain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return r.users[userID], nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, githubUsername string) (*domain.User, error) {
	return nil, nil
}

func (r *memUserRepo) UpdateCountry(ctx context.Context, userID domain.UserID, country string) error {
	return nil
}

func (r *memUserRepo) HandlesByCountry(ctx context.Context, country string) ([]string, error) {
	return nil, nil
}

func (r *memUserRepo) ListCountries(ctx context.Context) ([]string, error) { return nil, nil }

type recordingDispatcher struct {
	tasks []ports.RewriteTask
}

func (d *recordingDispatcher) DispatchRewrite(ctx context.Context, task ports.RewriteTask) (ports.RewriteOutcome, error) {
	d.tasks = append(d.tasks, task)
	return ports.RewriteOutcome{Rewritten: false, Reason: "rewrite-queued"}, nil
}

type ingestFixture struct {
	handler    *IngestHandler
	posts      *memPostRepo
	dispatcher *recordingDispatcher
	apiKey     string
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	keyRepo := newMemKeyRepo()
	userID := domain.NewUserID(uuid.New())
	userRepo := &memUserRepo{users: map[domain.UserID]*domain.User{
		userID: {ID: userID, GithubUsername: "alice", Email: "alice@example.com"},
	}}

	issued, err := keys.NewIssueKey(keyRepo, nil).Execute(context.Background(), keys.IssueKeyInput{UserID: userID})
	require.NoError(t, err)

	posts := newMemPostRepo()
	timeline := &memTimelineRepo{}
	dispatcher := &recordingDispatcher{}
	handler := NewIngestHandler(
		keys.NewResolveKey(keyRepo, userRepo, nil),
		ingest.NewIngestEvent(posts, timeline),
		ingest.NewCompleteSession(posts),
		dispatcher,
		zerolog.Nop(),
	)
	return &ingestFixture{handler: handler, posts: posts, dispatcher: dispatcher, apiKey: issued.APIKey}
}

func (f *ingestFixture) ingestBody(apiKey, sessionID, eventID string, ts int64) string {
	return fmt.Sprintf(`{"apiKey":%q,"event":{"sessionId":%q,"eventId":%q,"timestamp":%d,"promptLength":10,"microSummary":"built a thing"}}`,
		apiKey, sessionID, eventID, ts)
}

func postJSON(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestIngestEndpointHappyPath(t *testing.T) {
	f := newIngestFixture(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	rec := postJSON(f.handler.Ingest, f.ingestBody(f.apiKey, "demo-1", "evt-1", ts))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 1, resp.Result.Ingest.PromptCount)
	assert.False(t, resp.Result.Ingest.Deduplicated)
	assert.Equal(t, "rewrite-queued", resp.Result.Rewrite.Reason)
	require.Len(t, f.dispatcher.tasks, 1)
	assert.Equal(t, 1, f.dispatcher.tasks[0].PromptCount)
}

func TestIngestEndpointRejectsInvalidKey(t *testing.T) {
	f := newIngestFixture(t)
	ts := time.Now().UnixMilli()

	rec := postJSON(f.handler.Ingest, f.ingestBody("wc_bogus", "demo-1", "", ts))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.dispatcher.tasks)
}

func TestIngestEndpointRejectsMissingSessionID(t *testing.T) {
	f := newIngestFixture(t)
	body := fmt.Sprintf(`{"apiKey":%q,"event":{"timestamp":123,"promptLength":1}}`, f.apiKey)
	rec := postJSON(f.handler.Ingest, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEndpointSkipsDispatchOnDuplicate(t *testing.T) {
	f := newIngestFixture(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	body := f.ingestBody(f.apiKey, "demo-1", "evt-1", ts)

	postJSON(f.handler.Ingest, body)
	rec := postJSON(f.handler.Ingest, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Ingest.Deduplicated)
	assert.Equal(t, ReasonDuplicateEvent, resp.Result.Rewrite.Reason)
	assert.Len(t, f.dispatcher.tasks, 1)
}

func TestResolveKeyEndpoint(t *testing.T) {
	f := newIngestFixture(t)

	rec := postJSON(f.handler.ResolveKey, fmt.Sprintf(`{"apiKey":%q}`, f.apiKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK     bool             `json:"ok"`
		Result resolveKeyResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Valid)
	assert.Equal(t, "alice", resp.Result.GithubUsername)
	assert.Equal(t, "alice@example.com", resp.Result.GitEmail)

	rec = postJSON(f.handler.ResolveKey, `{"apiKey":"wc_bogus"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp.Result = resolveKeyResult{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Result.Valid)
	assert.Empty(t, resp.Result.GithubUsername)
}

func TestCompleteSessionEndpoint(t *testing.T) {
	f := newIngestFixture(t)
	ts := time.Now().UnixMilli()
	postJSON(f.handler.Ingest, f.ingestBody(f.apiKey, "demo-1", "", ts))

	rec := postJSON(f.handler.CompleteSession, `{"sessionId":"demo-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":true`)

	rec = postJSON(f.handler.CompleteSession, `{"sessionId":"nope"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":false`)
}
