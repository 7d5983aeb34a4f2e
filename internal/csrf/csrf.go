// Package csrf guards the state-changing dashboard routes with a
// double-submit cookie.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const (
	CookieName = "arwikicats_csrf"
	HeaderName = "X-CSRF-Token"
	tokenLen   = 32
)

type ctxKey struct{}

func generateToken() (string, error) {
	b := make([]byte, tokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Token returns the token issued for r by Protect, for embedding in forms.
func Token(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Protect implements the double-submit cookie pattern.
// Safe methods get a cookie readable by the import page script; anything
// else must echo it back in the X-CSRF-Token header.
func Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token := ""
			if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
				token = c.Value
			} else {
				token, err = generateToken()
				if err != nil {
					http.Error(w, "Internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, token)))
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			log.WithField("path", r.URL.Path).Warn("csrf: missing cookie")
			http.Error(w, "Forbidden: missing CSRF token", http.StatusForbidden)
			return
		}
		headerToken := r.Header.Get(HeaderName)
		if headerToken == "" || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			log.WithField("path", r.URL.Path).Warn("csrf: token mismatch")
			http.Error(w, "Forbidden: invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, cookie.Value)))
	})
}
