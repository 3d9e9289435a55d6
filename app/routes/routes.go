package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"quill/app/config"
	"quill/app/controllers"
	"quill/app/metrics"
	"quill/app/middleware"
	"quill/app/repositories"
	"quill/app/services"
	"quill/app/sessions"
)

// Route names used for URL reversal
const (
	PostCreate = "blog:post_create"
	PostDetail = "blog:post_detail"
	PostList   = "blog:post_list"
	Login      = "login"
	Logout     = "logout"
	Healthz    = "healthz"
	Metrics    = "metrics"
)

// Deps are the collaborators the router is built from
type Deps struct {
	Posts    repositories.PostRepository
	Authors  repositories.AuthorRepository
	Users    repositories.UserRepository
	Sessions sessions.Store
	Metrics  *metrics.Metrics
	Session  config.SessionConfig
	Logger   zerolog.Logger
}

// Setup defines the application's routes and returns a router
func Setup(deps Deps) (*mux.Router, error) {
	postService := services.NewPostService(deps.Posts, deps.Authors)
	postService.SetCreatedCounter(deps.Metrics.PostsCreated)
	authService := services.NewAuthService(deps.Users, deps.Authors)

	postController := controllers.NewPostController(postService, deps.Logger)
	authController := controllers.NewAuthController(authService, deps.Sessions, controllers.SessionCookie{
		Name:   deps.Session.CookieName,
		Secure: deps.Session.Secure,
		TTL:    deps.Session.TTL,
	}, deps.Logger)
	authController.SetAttemptsCounter(deps.Metrics.LoginAttempts)

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recoverer(deps.Logger))
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.LoadSession(deps.Sessions, authService, deps.Session.CookieName, deps.Logger))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
			return
		}
		http.NotFound(w, r)
	})

	router.HandleFunc("/healthz", controllers.Health).Methods("GET").Name(Healthz)
	router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET").Name(Metrics)

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.HandleFunc("/posts", postController.Index).Methods("GET")
	api.HandleFunc("/posts/{id:[0-9]+}", postController.Show).Methods("GET")

	// Web routes
	web := router.NewRoute().Subrouter()
	web.Use(middleware.CSRF(deps.Session.Secure, deps.Logger))
	web.HandleFunc("/login", authController.Login).Methods("GET", "POST").Name(Login)
	web.HandleFunc("/logout", authController.Logout).Methods("POST").Name(Logout)
	web.HandleFunc("/", postController.Index).Methods("GET")
	web.HandleFunc("/posts", postController.Index).Methods("GET").Name(PostList)
	web.HandleFunc("/posts/{id:[0-9]+}", postController.Show).Methods("GET").Name(PostDetail)

	loginURL, err := router.Get(Login).URL()
	if err != nil {
		return nil, fmt.Errorf("failed to reverse %s: %w", Login, err)
	}

	// The login check runs before the CSRF check so anonymous
	// submissions are sent to the login page instead of failing
	protected := router.NewRoute().Subrouter()
	protected.Use(middleware.RequireLogin(loginURL.String()))
	protected.Use(middleware.CSRF(deps.Session.Secure, deps.Logger))
	protected.HandleFunc("/posts/new", postController.Create).Methods("GET", "HEAD", "POST").Name(PostCreate)

	detail := router.Get(PostDetail)
	postController.SetPostURL(func(id int) string {
		u, err := detail.URL("id", strconv.Itoa(id))
		if err != nil {
			return "/posts/" + strconv.Itoa(id)
		}
		return u.String()
	})

	return router, nil
}
