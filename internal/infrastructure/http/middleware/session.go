package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nshelia/worldcommits/internal/application/ports"
	domainerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

const sessionCookieName = "wc_session"

// SessionAuth resolves the browser session token (Authorization bearer or the
// wc_session cookie) to a user id and sets it in context.
type SessionAuth struct {
	verifier ports.SessionVerifier
}

func NewSessionAuth(verifier ports.SessionVerifier) *SessionAuth {
	return &SessionAuth{verifier: verifier}
}

func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			writeErr(w, http.StatusUnauthorized, "unauthorized", "missing session token")
			return
		}
		userID, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, domainerrors.ErrUnauthorized) {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
				return
			}
			writeErr(w, http.StatusInternalServerError, "internal_error", "session verification failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
