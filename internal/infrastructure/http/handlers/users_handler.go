package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/application/profile"
	domainerrors "github.com/nshelia/worldcommits/internal/domain/errors"
	"github.com/nshelia/worldcommits/internal/infrastructure/http/middleware"
)

const maxCountryLength = 60

// UsersHandler handles /users/me. Requires session auth.
type UsersHandler struct {
	users  ports.UserRepository
	update *profile.UpdateProfile
	log    zerolog.Logger
}

func NewUsersHandler(users ports.UserRepository, update *profile.UpdateProfile, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{users: users, update: update, log: log}
}

// MeResponse is the JSON shape for GET /users/me.
type MeResponse struct {
	ID             string `json:"id"`
	GithubUsername string `json:"githubUsername"`
	Name           string `json:"name,omitempty"`
	Image          string `json:"image,omitempty"`
	Email          string `json:"email,omitempty"`
	Country        string `json:"country,omitempty"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("load user failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if user == nil {
		writeErr(w, http.StatusNotFound, "", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		ID:             user.ID.String(),
		GithubUsername: user.GithubUsername,
		Name:           user.Name,
		Image:          user.Image,
		Email:          user.Email,
		Country:        user.Country,
		CreatedAt:      timeToMs(user.CreatedAt),
		UpdatedAt:      timeToMs(user.UpdatedAt),
	})
}

type updateProfileRequest struct {
	Country string `json:"country"`
}

// UpdateMe handles PATCH /users/me. Only the country is mutable here; the
// identity fields belong to the auth service.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	country := strings.TrimSpace(req.Country)
	if len(country) > maxCountryLength {
		writeErr(w, http.StatusBadRequest, "", "country too long")
		return
	}
	err := h.update.Execute(r.Context(), profile.UpdateProfileInput{UserID: userID, Country: country})
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			writeErr(w, http.StatusNotFound, "", "user not found")
			return
		}
		h.log.Error().Err(err).Msg("update profile failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
