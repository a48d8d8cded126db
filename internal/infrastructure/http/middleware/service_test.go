package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestServiceTokenAuthAcceptsMatchingToken(t *testing.T) {
	handler := ServiceTokenAuth("secret-token")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp/ingest", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceTokenAuthRejectsWrongToken(t *testing.T) {
	handler := ServiceTokenAuth("secret-token")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp/ingest", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestServiceTokenAuthRejectsMissingHeader(t *testing.T) {
	handler := ServiceTokenAuth("secret-token")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp/ingest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceTokenAuthFailsClosedWhenUnconfigured(t *testing.T) {
	handler := ServiceTokenAuth("")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp/ingest", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
