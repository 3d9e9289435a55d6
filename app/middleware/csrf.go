package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFFieldName  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
	csrfCookieAge  = 365 * 24 * 60 * 60
)

// CSRF protects unsafe methods with a double-submit cookie. The token is
// available to handlers through CSRFToken.
func CSRF(secure bool, logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(CSRFCookieName); err == nil && validCSRFToken(cookie.Value) {
				token = cookie.Value
			}

			if !isSafeMethod(r.Method) {
				submitted := r.Header.Get(CSRFHeaderName)
				if submitted == "" {
					submitted = r.PostFormValue(CSRFFieldName)
				}
				if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
					logger.Warn().
						Str("request_id", GetRequestID(r.Context())).
						Str("path", r.URL.Path).
						Bool("cookie_present", token != "").
						Msg("csrf check failed")
					http.Error(w, "Forbidden (CSRF token missing or incorrect)", http.StatusForbidden)
					return
				}
			}

			if token == "" {
				var err error
				token, err = RotateCSRFToken(w, secure)
				if err != nil {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}

			ctx := context.WithValue(r.Context(), csrfKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RotateCSRFToken issues a fresh CSRF cookie, replacing any token the client holds.
func RotateCSRFToken(w http.ResponseWriter, secure bool) (string, error) {
	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieAge,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validCSRFToken(token string) bool {
	b, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(b) == csrfTokenBytes
}
