package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/leaderboard"
)

// LeaderboardHandler serves the public ranking and live stats endpoints.
type LeaderboardHandler struct {
	query *leaderboard.Query
	live  *leaderboard.LiveStats
	log   zerolog.Logger
}

func NewLeaderboardHandler(query *leaderboard.Query, live *leaderboard.LiveStats, log zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{query: query, live: live, log: log}
}

type leaderboardEntryResponse struct {
	GithubUsername    string `json:"githubUsername"`
	TotalPrompts      int    `json:"totalPrompts"`
	TotalLinesAdded   int    `json:"totalLinesAdded"`
	TotalLinesRemoved int    `json:"totalLinesRemoved"`
	TotalWords        int    `json:"totalWords"`
	SessionCount      int    `json:"sessionCount"`
	LastActiveAt      int64  `json:"lastActiveAt"`
	Country           string `json:"country,omitempty"`
}

// Get handles GET /leaderboard?timeRange=&country=&sortBy=.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.query.Execute(r.Context(), leaderboard.QueryInput{
		TimeRange: leaderboard.TimeRange(q.Get("timeRange")),
		Country:   q.Get("country"),
		SortBy:    leaderboard.SortBy(q.Get("sortBy")),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard query failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryResponse{
			GithubUsername:    e.GithubUsername,
			TotalPrompts:      e.TotalPrompts,
			TotalLinesAdded:   e.TotalLinesAdded,
			TotalLinesRemoved: e.TotalLinesRemoved,
			TotalWords:        e.TotalWords,
			SessionCount:      e.SessionCount,
			LastActiveAt:      timeToMs(e.LastActiveAt),
			Country:           e.Country,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

// Countries handles GET /leaderboard/countries.
func (h *LeaderboardHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.query.ListCountries(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list countries failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"countries": countries})
}

// LiveStats handles GET /stats/live.
func (h *LeaderboardHandler) LiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.live.Execute(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("live stats failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"activeVibecoders": stats.ActiveVibecoders,
		"recentPrompts":    stats.RecentPrompts,
		"totalRegistered":  stats.TotalRegistered,
	})
}
