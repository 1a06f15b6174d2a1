package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
)

func testCSRFKey(t *testing.T) []byte {
	t.Helper()
	config.Cfg = &config.AppConfig{CSRFAuthKey: []byte("0123456789abcdef0123456789abcdef")}
	return config.Cfg.CSRFAuthKey
}

// issueCSRFToken runs the token endpoint and returns the token plus cookie.
func issueCSRFToken(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	GetCSRFToken(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, csrfCookieName, cookies[0].Name)
	require.Equal(t, body.CSRFToken, cookies[0].Value)
	return body.CSRFToken, cookies[0]
}

func TestCSRFMiddlewareAcceptsIssuedToken(t *testing.T) {
	rq := require.New(t)
	key := testCSRFKey(t)
	token, cookie := issueCSRFToken(t)

	called := false
	handler := CSRFMiddleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	rq.True(called)
	rq.Equal(http.StatusOK, rec.Code)
}

func TestCSRFMiddlewareSkipsSafeMethods(t *testing.T) {
	rq := require.New(t)
	key := testCSRFKey(t)

	called := false
	handler := CSRFMiddleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/cgt", nil))
	rq.True(called)
}

func TestCSRFMiddlewareRejections(t *testing.T) {
	key := testCSRFKey(t)
	token, cookie := issueCSRFToken(t)

	// A value that decodes fine but was never signed by us.
	forged := base64.URLEncoding.EncodeToString(make([]byte, 64))

	tests := []struct {
		name   string
		header string
		cookie *http.Cookie
	}{
		{name: "missing header", header: "", cookie: cookie},
		{name: "missing cookie", header: token, cookie: nil},
		{name: "header cookie mismatch", header: forged, cookie: cookie},
		{name: "forged token", header: forged, cookie: &http.Cookie{Name: csrfCookieName, Value: forged}},
		{name: "not base64", header: "%%%", cookie: &http.Cookie{Name: csrfCookieName, Value: "%%%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)
			handler := CSRFMiddleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", nil)
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			rq.Equal(http.StatusForbidden, rec.Code)
		})
	}
}

func TestCSRFTokenRejectedUnderDifferentKey(t *testing.T) {
	rq := require.New(t)
	testCSRFKey(t)
	token, cookie := issueCSRFToken(t)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	handler := CSRFMiddleware(otherKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	rq.Equal(http.StatusForbidden, rec.Code)
}
