package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"quill/app/middleware"
	"quill/app/services"
	"quill/app/sessions"
)

const loginFailedMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// SessionCookie describes the cookie that carries the session token
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthController handles login and logout
type AuthController struct {
	authService *services.AuthService
	sessions    sessions.Store
	cookie      SessionCookie
	templates   map[string]*template.Template
	logger      zerolog.Logger
	attempts    *prometheus.CounterVec
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, store sessions.Store, cookie SessionCookie, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		sessions:    store,
		cookie:      cookie,
		templates:   loadTemplates(),
		logger:      logger,
	}
}

// SetAttemptsCounter sets the counter labelled by login result
func (ac *AuthController) SetAttemptsCounter(c *prometheus.CounterVec) {
	ac.attempts = c
}

// Login renders the login form on GET and starts a session on POST
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ac.renderLogin(w, r, "", r.URL.Query().Get("next"), "")
		return
	}

	if err := r.ParseForm(); err != nil {
		sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	next := r.PostForm.Get("next")

	user, err := ac.authService.Authenticate(username, r.PostForm.Get("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		ac.countAttempt("failure")
		ac.logger.Info().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("username", username).
			Msg("login failed")
		ac.renderLogin(w, r, username, next, loginFailedMessage)
		return
	}
	if err != nil {
		ac.serverError(w, r, "failed to authenticate", err)
		return
	}

	session, err := ac.sessions.Create(r.Context(), user.ID)
	if err != nil {
		ac.serverError(w, r, "failed to create session", err)
		return
	}
	if _, err := middleware.RotateCSRFToken(w, ac.cookie.Secure); err != nil {
		ac.serverError(w, r, "failed to rotate csrf token", err)
		return
	}
	ac.countAttempt("success")

	http.SetCookie(w, &http.Cookie{
		Name:     ac.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(ac.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, middleware.SafeNext(next, "/"), http.StatusSeeOther)
}

// Logout ends the current session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(ac.cookie.Name); err == nil && cookie.Value != "" {
		err := ac.sessions.Delete(r.Context(), cookie.Value)
		if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
			ac.serverError(w, r, "failed to delete session", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ac.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ac *AuthController) renderLogin(w http.ResponseWriter, r *http.Request, username, next, formError string) {
	data := struct {
		Page
		Username  string
		Next      string
		FormError string
	}{
		Page:      newPage(r, "Log in"),
		Username:  username,
		Next:      next,
		FormError: formError,
	}
	if err := renderTemplate(w, ac.templates["auth/login"], http.StatusOK, data); err != nil {
		ac.serverError(w, r, "failed to render login", err)
	}
}

func (ac *AuthController) countAttempt(result string) {
	if ac.attempts != nil {
		ac.attempts.WithLabelValues(result).Inc()
	}
}

func (ac *AuthController) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ac.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
	sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
}
