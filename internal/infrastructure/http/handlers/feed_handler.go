package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/feed"
	"github.com/nshelia/worldcommits/internal/domain"
)

// FeedHandler serves the public post feed read by the UI.
type FeedHandler struct {
	list *feed.ListPosts
	log  zerolog.Logger
}

func NewFeedHandler(list *feed.ListPosts, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{list: list, log: log}
}

type postResponse struct {
	ID                   string `json:"id"`
	SessionID            string `json:"sessionId"`
	GithubUsername       string `json:"githubUsername"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	Status               string `json:"status"`
	PromptCount          int    `json:"promptCount"`
	TotalWords           int    `json:"totalWords"`
	TotalLinesAdded      int    `json:"totalLinesAdded"`
	TotalLinesRemoved    int    `json:"totalLinesRemoved"`
	AIAcceptedCount      int    `json:"aiAcceptedCount"`
	ManualOverrideCount  int    `json:"manualOverrideCount"`
	HighRetryEventsCount int    `json:"highRetryEventsCount"`
	StartedAt            int64  `json:"startedAt"`
	LastPromptAt         int64  `json:"lastPromptAt"`
	EndedAt              *int64 `json:"endedAt,omitempty"`
	LastRewriteAt        *int64 `json:"lastRewriteAt,omitempty"`
	LastRewriteProvider  string `json:"lastRewriteProvider,omitempty"`
	UpdatedAt            int64  `json:"updatedAt"`
}

type timelineEventResponse struct {
	ID                      string `json:"id"`
	Timestamp               int64  `json:"timestamp"`
	PromptLength            int    `json:"promptLength"`
	ContainsCodeBlock       bool   `json:"containsCodeBlock"`
	ModelUsed               string `json:"modelUsed,omitempty"`
	RetryIndex              int    `json:"retryIndex"`
	TimeSinceLastPromptMs   int64  `json:"timeSinceLastPromptMs"`
	AIEditSuggested         bool   `json:"aiEditSuggested"`
	AIEditAccepted          bool   `json:"aiEditAccepted"`
	ManualOverride          bool   `json:"manualOverride"`
	LinesAddedCount         int    `json:"linesAddedCount"`
	LinesRemovedCount       int    `json:"linesRemovedCount"`
	RepeatedPatternDetected bool   `json:"repeatedPatternDetected"`
	HighRetryRate           bool   `json:"highRetryRate"`
	MicroSummary            string `json:"microSummary,omitempty"`
}

type feedItemResponse struct {
	Post     postResponse            `json:"post"`
	Timeline []timelineEventResponse `json:"timeline"`
}

type feedPageResponse struct {
	Items          []feedItemResponse `json:"items"`
	ContinueCursor *int64             `json:"continueCursor,omitempty"`
	IsDone         bool               `json:"isDone"`
}

// List handles GET /posts?limit=&cursor=.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// ListByUser handles GET /users/{handle}/posts.
func (h *FeedHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if handle == "" {
		writeErr(w, http.StatusBadRequest, "", "missing handle")
		return
	}
	h.serve(w, r, handle)
}

func (h *FeedHandler) serve(w http.ResponseWriter, r *http.Request, githubUsername string) {
	in := feed.ListPostsInput{GithubUsername: githubUsername}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeErr(w, http.StatusBadRequest, "", "invalid limit")
			return
		}
		in.Limit = limit
	}
	if raw := q.Get("cursor"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			writeErr(w, http.StatusBadRequest, "", "invalid cursor")
			return
		}
		t := msToTime(ms)
		in.Before = &t
	}

	page, err := h.list.Execute(r.Context(), in)
	if err != nil {
		h.log.Error().Err(err).Msg("list posts failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}

	resp := feedPageResponse{
		Items:          make([]feedItemResponse, 0, len(page.Items)),
		ContinueCursor: timePtrToMs(page.ContinueCursor),
		IsDone:         page.IsDone,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, feedItemResponse{
			Post:     toPostResponse(item.Post),
			Timeline: toTimelineResponses(item.Timeline),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toPostResponse(p *domain.Post) postResponse {
	return postResponse{
		ID:                   p.ID.String(),
		SessionID:            p.SessionID,
		GithubUsername:       p.GithubUsername,
		Title:                p.Title,
		Description:          p.Description,
		Status:               string(p.Status),
		PromptCount:          p.PromptCount,
		TotalWords:           p.TotalWords,
		TotalLinesAdded:      p.TotalLinesAdded,
		TotalLinesRemoved:    p.TotalLinesRemoved,
		AIAcceptedCount:      p.AIAcceptedCount,
		ManualOverrideCount:  p.ManualOverrideCount,
		HighRetryEventsCount: p.HighRetryEventsCount,
		StartedAt:            timeToMs(p.StartedAt),
		LastPromptAt:         timeToMs(p.LastPromptAt),
		EndedAt:              timePtrToMs(p.EndedAt),
		LastRewriteAt:        timePtrToMs(p.LastRewriteAt),
		LastRewriteProvider:  p.LastRewriteProvider,
		UpdatedAt:            timeToMs(p.UpdatedAt),
	}
}

func toTimelineResponses(events []*domain.TimelineEvent) []timelineEventResponse {
	out := make([]timelineEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, timelineEventResponse{
			ID:                      e.ID.String(),
			Timestamp:               timeToMs(e.Timestamp),
			PromptLength:            e.PromptLength,
			ContainsCodeBlock:       e.ContainsCodeBlock,
			ModelUsed:               e.ModelUsed,
			RetryIndex:              e.RetryIndex,
			TimeSinceLastPromptMs:   e.TimeSinceLastPromptMs,
			AIEditSuggested:         e.AIEditSuggested,
			AIEditAccepted:          e.AIEditAccepted,
			ManualOverride:          e.ManualOverride,
			LinesAddedCount:         e.LinesAddedCount,
			LinesRemovedCount:       e.LinesRemovedCount,
			RepeatedPatternDetected: e.RepeatedPatternDetected,
			HighRetryRate:           e.HighRetryRate,
			MicroSummary:            e.MicroSummary,
		})
	}
	return out
}
