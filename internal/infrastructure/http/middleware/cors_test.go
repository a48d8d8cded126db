package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsTestHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowedOrigin(t *testing.T) {
	var called bool
	handler := CORS([]string{"https://worldcommits.dev"}, nil, nil)(corsTestHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Origin", "https://worldcommits.dev")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, "https://worldcommits.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	var called bool
	handler := CORS([]string{"https://worldcommits.dev"}, nil, nil)(corsTestHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	var called bool
	handler := CORS([]string{"https://worldcommits.dev"}, nil, nil)(corsTestHandler(&called))

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "https://worldcommits.dev")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSDisabledWhenNoOriginsConfigured(t *testing.T) {
	var called bool
	handler := CORS(nil, nil, nil)(corsTestHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Origin", "https://worldcommits.dev")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
