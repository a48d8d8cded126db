package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/keys"
	"github.com/nshelia/worldcommits/internal/domain"
	domainerrors "github.com/nshelia/worldcommits/internal/domain/errors"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/middleware"
)

// KeysHandler handles /keys/* for the logged-in user.
type KeysHandler struct {
	issue  *keys.IssueKey
	list   *keys.ListKeys
	revoke *keys.RevokeKey
	log    zerolog.Logger
}

func NewKeysHandler(issue *keys.IssueKey, list *keys.ListKeys, revoke *keys.RevokeKey, log zerolog.Logger) *KeysHandler {
	return &KeysHandler{issue: issue, list: list, revoke: revoke, log: log}
}

type createKeyRequest struct {
	Label string `json:"label"`
}

// createKeyResponse carries the raw secret. It is shown exactly once.
type createKeyResponse struct {
	ID        string `json:"id"`
	APIKey    string `json:"apiKey"`
	KeyPrefix string `json:"keyPrefix"`
	CreatedAt int64  `json:"createdAt"`
}

type keySummaryResponse struct {
	ID         string `json:"id"`
	KeyPrefix  string `json:"keyPrefix"`
	Label      string `json:"label"`
	CreatedAt  int64  `json:"createdAt"`
	LastUsedAt *int64 `json:"lastUsedAt,omitempty"`
	RevokedAt  *int64 `json:"revokedAt,omitempty"`
}

// Create handles POST /keys.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	result, err := h.issue.Execute(r.Context(), keys.IssueKeyInput{UserID: userID, Label: req.Label})
	if err != nil {
		h.log.Error().Err(err).Msg("issue key failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        result.KeyID.String(),
		APIKey:    result.APIKey,
		KeyPrefix: result.KeyPrefix,
		CreatedAt: timeToMs(result.CreatedAt),
	})
}

// List handles GET /keys.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	summaries, err := h.list.Execute(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("list keys failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	out := make([]keySummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, keySummaryResponse{
			ID:         s.ID.String(),
			KeyPrefix:  s.KeyPrefix,
			Label:      s.Label,
			CreatedAt:  timeToMs(s.CreatedAt),
			LastUsedAt: timePtrToMs(s.LastUsedAt),
			RevokedAt:  timePtrToMs(s.RevokedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": out})
}

// Revoke handles POST /keys/{id}/revoke. Revoking again is a no-op.
func (h *KeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid key id")
		return
	}
	result, err := h.revoke.Execute(r.Context(), userID, domain.NewKeyID(keyID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrKeyNotFound) {
			writeErr(w, http.StatusNotFound, "", "key not found")
			return
		}
		h.log.Error().Err(err).Msg("revoke key failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": result.Revoked})
}
