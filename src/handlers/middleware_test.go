package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	rq := require.New(t)

	id, ok := GetUserIDFromContext(context.Background())
	rq.False(ok)
	rq.Zero(id)

	ctx := context.WithValue(context.Background(), userIDContextKey, int64(42))
	id, ok = GetUserIDFromContext(ctx)
	rq.True(ok)
	rq.Equal(int64(42), id)
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	rq := require.New(t)
	config.Cfg = &config.AppConfig{AllowedOrigins: []string{"http://localhost:5173", "https://app.example.com"}}

	called := false
	handler := CORSMiddleware(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	rq.True(called)
	rq.Equal("https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	rq.Equal("true", rec.Header().Get("Access-Control-Allow-Credentials"))
	rq.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-CSRF-Token")
	rq.Equal("X-CSRF-Token", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSMiddlewareAnswersPreflight(t *testing.T) {
	rq := require.New(t)
	config.Cfg = &config.AppConfig{AllowedOrigins: []string{"http://localhost:5173"}}

	called := false
	handler := CORSMiddleware(okHandler(&called))

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	rq.False(called)
	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal("http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewareIgnoresUnknownOrigin(t *testing.T) {
	rq := require.New(t)
	config.Cfg = &config.AppConfig{AllowedOrigins: []string{"http://localhost:5173"}}

	called := false
	handler := CORSMiddleware(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The request still reaches the handler; the browser enforces the policy.
	rq.True(called)
	rq.Empty(rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddlewareEnforcesBurst(t *testing.T) {
	rq := require.New(t)

	called := 0
	handler := RateLimitMiddleware(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/cgt", nil)
		req.RemoteAddr = "203.0.113.7:4431"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rq.Equal(http.StatusOK, request().Code)
	rq.Equal(http.StatusOK, request().Code)

	rec := request()
	rq.Equal(http.StatusTooManyRequests, rec.Code)
	rq.Equal(2, called)

	var body map[string]string
	rq.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	rq.Equal("Too many requests", body["error"])
}

func TestRateLimitMiddlewareTracksClientsSeparately(t *testing.T) {
	rq := require.New(t)

	handler := RateLimitMiddleware(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/cgt", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	rq.Equal(http.StatusOK, request("203.0.113.7:4431"))
	rq.Equal(http.StatusTooManyRequests, request("203.0.113.7:9919"))
	rq.Equal(http.StatusOK, request("198.51.100.23:4431"))
}
