package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/utils"
)

const csrfCookieName = "csrf_token"

// newCSRFToken mints a random token carrying an HMAC tag so that only tokens
// we issued pass validation.
func newCSRFToken(key []byte) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(nonce)
	return base64.URLEncoding.EncodeToString(append(nonce, mac.Sum(nil)...)), nil
}

func validCSRFToken(key []byte, token string) bool {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) != 32+sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(raw[:32])
	return hmac.Equal(raw[32:], mac.Sum(nil))
}

// GetCSRFToken issues a fresh token as both an HttpOnly cookie and a response
// field. Clients echo the body value in the X-CSRF-Token header on mutating
// requests.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := newCSRFToken(config.Cfg.CSRFAuthKey)
	if err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		MaxAge:   3600,
	})

	w.Header().Set("X-CSRF-Token", token)
	utils.SendJSON(w, map[string]string{"csrfToken": token}, http.StatusOK)
}

// CSRFMiddleware enforces the double-submit check on mutating requests: the
// X-CSRF-Token header must match the cookie and carry a valid HMAC tag.
func CSRFMiddleware(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken == "" || err != nil || headerToken != cookie.Value || !validCSRFToken(key, headerToken) {
				logger.L.Warn("CSRF validation failed",
					"method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
				utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
