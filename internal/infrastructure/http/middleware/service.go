package middleware

import (
	"crypto/subtle"
	"net/http"
)

// ServiceTokenAuth guards bridge endpoints with a shared secret. An empty
// configured token fails closed: the endpoints answer 500 until the operator
// sets one.
func ServiceTokenAuth(configuredToken string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if configuredToken == "" {
				writeErr(w, http.StatusInternalServerError, "internal_error", "ingest token not configured")
				return
			}
			token := bearerToken(r)
			if subtle.ConstantTimeCompare([]byte(token), []byte(configuredToken)) != 1 {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "invalid service token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
