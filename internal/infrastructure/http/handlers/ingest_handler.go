package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/ingest"
	"github.com/nshelia/worldcommits/internal/application/keys"
	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/middleware"
)

// ReasonDuplicateEvent is reported when a replayed event skips the rewrite.
const ReasonDuplicateEvent = "duplicate-event"

// IngestHandler serves the bridge endpoints under /mcp/*. Callers carry the
// shared service token; the user identity comes from the apiKey in the body.
type IngestHandler struct {
	resolve    *keys.ResolveKey
	ingest     *ingest.IngestEvent
	complete   *ingest.CompleteSession
	dispatcher ports.RewriteDispatcher
	validate   *validator.Validate
	log        zerolog.Logger
}

func NewIngestHandler(resolve *keys.ResolveKey, ingestUC *ingest.IngestEvent, complete *ingest.CompleteSession, dispatcher ports.RewriteDispatcher, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		resolve:    resolve,
		ingest:     ingestUC,
		complete:   complete,
		dispatcher: dispatcher,
		validate:   validator.New(),
		log:        log,
	}
}

// eventRequest is the bridge's wire shape for one telemetry event. Timestamp
// is epoch milliseconds.
type eventRequest struct {
	SessionID               string `json:"sessionId" validate:"required,max=200"`
	EventID                 string `json:"eventId" validate:"max=200"`
	Timestamp               int64  `json:"timestamp" validate:"required,gt=0"`
	PromptLength            int    `json:"promptLength" validate:"gte=0"`
	ContainsCodeBlock       bool   `json:"containsCodeBlock"`
	ModelUsed               string `json:"modelUsed" validate:"max=200"`
	RetryIndex              int    `json:"retryIndex" validate:"gte=0"`
	TimeSinceLastPromptMs   int64  `json:"timeSinceLastPromptMs" validate:"gte=0"`
	AIEditSuggested         bool   `json:"aiEditSuggested"`
	AIEditAccepted          bool   `json:"aiEditAccepted"`
	ManualOverride          bool   `json:"manualOverride"`
	LinesAddedCount         int    `json:"linesAddedCount" validate:"gte=0"`
	LinesRemovedCount       int    `json:"linesRemovedCount" validate:"gte=0"`
	RepeatedPatternDetected bool   `json:"repeatedPatternDetected"`
	HighRetryRate           bool   `json:"highRetryRate"`
	MicroSummary            string `json:"microSummary"`
	MarkSessionCompleted    bool   `json:"markSessionCompleted"`
}

type ingestRequest struct {
	APIKey string       `json:"apiKey" validate:"required"`
	Event  eventRequest `json:"event" validate:"required"`
}

type ingestResultResponse struct {
	PostID               string `json:"postId"`
	PromptCount          int    `json:"promptCount"`
	MarkSessionCompleted bool   `json:"markSessionCompleted"`
	Deduplicated         bool   `json:"deduplicated"`
}

type ingestResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Ingest  ingestResultResponse `json:"ingest"`
		Rewrite ports.RewriteOutcome `json:"rewrite"`
	} `json:"result"`
}

// Ingest handles POST /mcp/ingest.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid event: "+err.Error())
		return
	}

	identity, err := h.resolve.Execute(r.Context(), req.APIKey)
	if err != nil {
		h.log.Error().Err(err).Msg("api key resolution failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if identity == nil {
		writeErr(w, http.StatusUnauthorized, "", "invalid api key")
		return
	}
	if err := h.resolve.Touch(r.Context(), identity.KeyID); err != nil {
		h.log.Warn().Err(err).Msg("api key touch failed")
	}

	result, err := h.ingest.Execute(r.Context(), ingest.EventInput{
		SessionID:               req.Event.SessionID,
		EventID:                 req.Event.EventID,
		UserID:                  &identity.UserID,
		GithubUsername:          identity.GithubUsername,
		Timestamp:               msToTime(req.Event.Timestamp),
		PromptLength:            req.Event.PromptLength,
		ContainsCodeBlock:       req.Event.ContainsCodeBlock,
		ModelUsed:               req.Event.ModelUsed,
		RetryIndex:              req.Event.RetryIndex,
		TimeSinceLastPromptMs:   req.Event.TimeSinceLastPromptMs,
		AIEditSuggested:         req.Event.AIEditSuggested,
		AIEditAccepted:          req.Event.AIEditAccepted,
		ManualOverride:          req.Event.ManualOverride,
		LinesAddedCount:         req.Event.LinesAddedCount,
		LinesRemovedCount:       req.Event.LinesRemovedCount,
		RepeatedPatternDetected: req.Event.RepeatedPatternDetected,
		HighRetryRate:           req.Event.HighRetryRate,
		MicroSummary:            req.Event.MicroSummary,
		MarkSessionCompleted:    req.Event.MarkSessionCompleted,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.Event.SessionID).Msg("ingest failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	middleware.RecordIngest(result.Deduplicated)

	rewriteOutcome := ports.RewriteOutcome{Rewritten: false, Reason: ReasonDuplicateEvent}
	if !result.Deduplicated {
		rewriteOutcome, err = h.dispatcher.DispatchRewrite(r.Context(), ports.RewriteTask{
			PostID:               result.PostID,
			PromptCount:          result.PromptCount,
			MarkSessionCompleted: result.MarkSessionCompleted,
		})
		if err != nil {
			// The ingestion-time copy is always valid; a failed dispatch only
			// delays the nicer rewrite.
			h.log.Warn().Err(err).Str("post_id", result.PostID.String()).Msg("rewrite dispatch failed")
			rewriteOutcome = ports.RewriteOutcome{Rewritten: false, Reason: "dispatch-failed"}
		}
	}
	label := rewriteOutcome.Provider
	if !rewriteOutcome.Rewritten {
		label = rewriteOutcome.Reason
	}
	middleware.RecordRewrite(rewriteOutcome.Rewritten, label)

	var resp ingestResponse
	resp.OK = true
	resp.Result.Ingest = ingestResultResponse{
		PostID:               result.PostID.String(),
		PromptCount:          result.PromptCount,
		MarkSessionCompleted: result.MarkSessionCompleted,
		Deduplicated:         result.Deduplicated,
	}
	resp.Result.Rewrite = rewriteOutcome
	writeJSON(w, http.StatusOK, resp)
}

type resolveKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

type resolveKeyResult struct {
	Valid          bool   `json:"valid"`
	UserID         string `json:"userId,omitempty"`
	GithubUsername string `json:"githubUsername,omitempty"`
	GitEmail       string `json:"gitEmail,omitempty"`
}

// ResolveKey handles POST /mcp/resolve-key: the bridge checks a key before
// starting a session. Unknown and revoked keys are a negative result, not an
// error.
func (h *IngestHandler) ResolveKey(w http.ResponseWriter, r *http.Request) {
	var req resolveKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "apiKey is required")
		return
	}

	identity, err := h.resolve.Execute(r.Context(), req.APIKey)
	if err != nil {
		h.log.Error().Err(err).Msg("api key resolution failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if identity == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":     true,
			"result": resolveKeyResult{Valid: false},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"result": resolveKeyResult{
			Valid:          true,
			UserID:         identity.UserID.String(),
			GithubUsername: identity.GithubUsername,
			GitEmail:       identity.GitEmail,
		},
	})
}

type completeSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=200"`
}

// CompleteSession handles POST /mcp/sessions/complete.
func (h *IngestHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "sessionId is required")
		return
	}
	result, err := h.complete.Execute(r.Context(), req.SessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("complete session failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": map[string]bool{"updated": result.Updated},
	})
}
