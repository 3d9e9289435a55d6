package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"quill/app/models"
	"quill/app/sessions"
)

// UserLoader resolves a session's user
type UserLoader interface {
	GetUser(id int) (*models.User, error)
}

// LoadSession attaches the user of a valid session cookie to the request context.
// Requests without a valid session continue anonymously.
func LoadSession(store sessions.Store, users UserLoader, cookieName string, logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, sessions.ErrSessionNotFound) {
					logger.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("failed to load session")
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUser(session.UserID)
			if err != nil {
				logger.Warn().Err(err).Int("user_id", session.UserID).Msg("session refers to unknown user")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireLogin redirects anonymous requests to loginURL with the original URI in "next"
func RequireLogin(loginURL string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Protected pages must not be cached
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")

			if CurrentUser(r.Context()) == nil {
				http.Redirect(w, r, LoginRedirectURL(loginURL, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirectURL builds loginURL?next=<uri>, leaving slashes in uri unescaped
func LoginRedirectURL(loginURL, uri string) string {
	next := strings.ReplaceAll(url.QueryEscape(uri), "%2F", "/")
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + next
}

// SafeNext returns next if it is a local path, else fallback
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
