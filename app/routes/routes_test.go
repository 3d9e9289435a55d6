package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"quill/app/config"
	"quill/app/metrics"
	"quill/app/middleware"
	"quill/app/models"
	"quill/app/repositories"
	"quill/app/services"
	"quill/app/sessions"
)

var testCSRFToken = base64.RawURLEncoding.EncodeToString(make([]byte, 32))

type testApp struct {
	router  *mux.Router
	repo    *repositories.Repository
	store   sessions.Store
	metrics *metrics.Metrics
	auth    *services.AuthService
}

func setupTestApp(t *testing.T) *testApp {
	repo, err := repositories.NewInMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := config.Default()
	store := sessions.NewBadgerStore(repo.DB(), cfg.Session.TTL)
	m := metrics.New()

	router, err := Setup(Deps{
		Posts:    repo.Posts,
		Authors:  repo.Authors,
		Users:    repo.Users,
		Sessions: store,
		Metrics:  m,
		Session:  cfg.Session,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	auth := services.NewAuthService(repo.Users, repo.Authors)
	auth.SetCost(bcrypt.MinCost)

	return &testApp{router: router, repo: repo, store: store, metrics: m, auth: auth}
}

// user registers a user, optionally with an author profile, and returns a logged-in session cookie
func (a *testApp) user(t *testing.T, username string, author bool) (*models.User, *http.Cookie) {
	user, err := a.auth.Register(username, username+"@example.com", "12345")
	require.NoError(t, err)
	if author {
		_, err := a.auth.RegisterAuthor(user.ID)
		require.NoError(t, err)
	}

	session, err := a.store.Create(context.Background(), user.ID)
	require.NoError(t, err)
	return user, &http.Cookie{Name: "sessionid", Value: session.Token}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) postCount(t *testing.T) int {
	count, err := a.repo.Posts.Count()
	require.NoError(t, err)
	return count
}

func csrfCookie() *http.Cookie {
	return &http.Cookie{Name: middleware.CSRFCookieName, Value: testCSRFToken}
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withCSRF(values url.Values) url.Values {
	values.Set(middleware.CSRFFieldName, testCSRFToken)
	return values
}

func TestReverseURLs(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name  string
		pairs []string
		want  string
	}{
		{PostCreate, nil, "/posts/new"},
		{PostDetail, []string{"id", "42"}, "/posts/42"},
		{PostList, nil, "/posts"},
		{Login, nil, "/login"},
		{Logout, nil, "/logout"},
		{Healthz, nil, "/healthz"},
		{Metrics, nil, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := app.router.Get(tt.name)
			require.NotNil(t, route)
			u, err := route.URL(tt.pairs...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestCreatePost_RequiresLogin(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name     string
		req      *http.Request
		location string
	}{
		{
			name:     "get",
			req:      httptest.NewRequest(http.MethodGet, "/posts/new", nil),
			location: "/login?next=/posts/new",
		},
		{
			name:     "post",
			req:      formRequest("/posts/new", url.Values{"title": {"Greeting"}, "content": {"Hello, world!"}}),
			location: "/login?next=/posts/new",
		},
		{
			name:     "head",
			req:      httptest.NewRequest(http.MethodHead, "/posts/new", nil),
			location: "/login?next=/posts/new",
		},
		{
			name:     "query string is kept",
			req:      httptest.NewRequest(http.MethodGet, "/posts/new?draft=1", nil),
			location: "/login?next=/posts/new%3Fdraft%3D1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(tt.req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
			assert.Zero(t, app.postCount(t))
		})
	}

	t.Run("unknown session is anonymous", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil),
			&http.Cookie{Name: "sessionid", Value: "not-a-session"})
		assert.Equal(t, http.StatusFound, w.Code)
	})
}

func TestCreatePost_ShowForm(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "john", true)

	w := app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil), session)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	body := w.Body.String()
	assert.Contains(t, body, `name="csrf_token"`)
	assert.Contains(t, body, `name="title"`)
	assert.Contains(t, body, `name="content"`)

	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)
	assert.Contains(t, body, `value="`+token+`"`)

	t.Run("head", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodHead, "/posts/new", nil), session)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, app.postCount(t))
	})

	t.Run("repeated gets do not store posts", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			w := app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil), session)
			assert.Equal(t, http.StatusOK, w.Code)
		}
		assert.Zero(t, app.postCount(t))
	})
}

func TestCreatePost_Valid(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "john", true)

	values := withCSRF(url.Values{"title": {"Greeting"}, "content": {"Hello, world!"}})
	w := app.do(formRequest("/posts/new", values), session, csrfCookie())

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/posts/1", w.Header().Get("Location"))
	assert.Equal(t, 1, app.postCount(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.PostsCreated))

	post, err := app.repo.Posts.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Greeting", post.Title)
	assert.Equal(t, "Hello, world!", post.Content)

	t.Run("detail page", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodGet, "/posts/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Hello, world!")
	})
}

func TestCreatePost_Concurrent(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "john", true)

	const n = 50
	var wg sync.WaitGroup
	codes := make([]int, n)
	locations := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values := withCSRF(url.Values{"title": {"Post " + strconv.Itoa(i)}, "content": {"Hello, world!"}})
			w := app.do(formRequest("/posts/new", values), session, csrfCookie())
			codes[i] = w.Code
			locations[i] = w.Header().Get("Location")
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusSeeOther, codes[i], "request %d", i)
		assert.False(t, seen[locations[i]], "duplicate location %s", locations[i])
		seen[locations[i]] = true
	}
	assert.Equal(t, n, app.postCount(t))
	assert.Equal(t, float64(n), testutil.ToFloat64(app.metrics.PostsCreated))
}

func TestCreatePost_Invalid(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "john", true)

	tests := []struct {
		name   string
		values url.Values
	}{
		{"no fields", url.Values{}},
		{"empty fields", url.Values{"title": {""}, "content": {""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(formRequest("/posts/new", withCSRF(tt.values)), session, csrfCookie())

			assert.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, `id="title-errors"`)
			assert.Contains(t, body, `id="content-errors"`)
			assert.Contains(t, body, "This field is required.")
			assert.Zero(t, app.postCount(t))
			assert.Zero(t, testutil.ToFloat64(app.metrics.PostsCreated))
		})
	}
}

func TestCreatePost_CSRF(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "john", true)
	values := url.Values{"title": {"Greeting"}, "content": {"Hello, world!"}}

	t.Run("missing token", func(t *testing.T) {
		w := app.do(formRequest("/posts/new", values), session)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("mismatched token", func(t *testing.T) {
		other := url.Values{"title": values["title"], "content": values["content"]}
		other.Set(middleware.CSRFFieldName, base64.RawURLEncoding.EncodeToString([]byte(strings.Repeat("x", 32))))
		w := app.do(formRequest("/posts/new", other), session, csrfCookie())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("header token", func(t *testing.T) {
		req := formRequest("/posts/new", url.Values{"title": values["title"], "content": values["content"]})
		req.Header.Set(middleware.CSRFHeaderName, testCSRFToken)
		w := app.do(req, session, csrfCookie())
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, 1, app.postCount(t))
	})

	assert.Equal(t, 1, app.postCount(t))
}

func TestCreatePost_NotAuthor(t *testing.T) {
	app := setupTestApp(t)
	_, session := app.user(t, "reader", false)

	w := app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil), session)
	assert.Equal(t, http.StatusForbidden, w.Code)

	values := withCSRF(url.Values{"title": {"Greeting"}, "content": {"Hello, world!"}})
	w = app.do(formRequest("/posts/new", values), session, csrfCookie())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, app.postCount(t))
}

func TestLoginFlow(t *testing.T) {
	app := setupTestApp(t)
	_, err := app.auth.Register("john", "john@example.com", "12345")
	require.NoError(t, err)
	user, err := app.auth.Authenticate("john", "12345")
	require.NoError(t, err)
	_, err = app.auth.RegisterAuthor(user.ID)
	require.NoError(t, err)

	// Follow the redirect from the protected page
	w := app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil))
	require.Equal(t, http.StatusFound, w.Code)
	loginURL := w.Header().Get("Location")

	w = app.do(httptest.NewRequest(http.MethodGet, loginURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="next" value="/posts/new"`)

	var csrf *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			csrf = c
		}
	}
	require.NotNil(t, csrf)

	t.Run("wrong password", func(t *testing.T) {
		values := url.Values{"username": {"john"}, "password": {"nope"}, "next": {"/posts/new"}}
		values.Set(middleware.CSRFFieldName, csrf.Value)
		w := app.do(formRequest("/login", values), csrf)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")
		assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.LoginAttempts.WithLabelValues("failure")))
	})

	values := url.Values{"username": {"john"}, "password": {"12345"}, "next": {"/posts/new"}}
	values.Set(middleware.CSRFFieldName, csrf.Value)
	w = app.do(formRequest("/login", values), csrf)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/posts/new", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sessionid" {
			session = c
		}
	}
	require.NotNil(t, session)

	w = app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil), session, csrf)
	assert.Equal(t, http.StatusOK, w.Code)

	// Logging out ends the session
	logout := url.Values{}
	logout.Set(middleware.CSRFFieldName, csrf.Value)
	w = app.do(formRequest("/logout", logout), session, csrf)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/posts/new", nil), session)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLogin_UnsafeNext(t *testing.T) {
	app := setupTestApp(t)
	_, err := app.auth.Register("john", "john@example.com", "12345")
	require.NoError(t, err)

	values := withCSRF(url.Values{"username": {"john"}, "password": {"12345"}, "next": {"//evil.example/"}})
	w := app.do(formRequest("/login", values), csrfCookie())

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestReadRoutes(t *testing.T) {
	app := setupTestApp(t)
	user, _ := app.user(t, "john", true)
	author, err := app.repo.Authors.GetByUserID(user.ID)
	require.NoError(t, err)
	require.NoError(t, app.repo.Posts.Create(&models.Post{Title: "Test Post", Content: "Test Content", AuthorID: author.ID}))

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
	}{
		{"home", "/", http.StatusOK, "text/html; charset=utf-8"},
		{"list", "/posts", http.StatusOK, "text/html; charset=utf-8"},
		{"detail", "/posts/1", http.StatusOK, "text/html; charset=utf-8"},
		{"missing detail", "/posts/99", http.StatusNotFound, "text/plain; charset=utf-8"},
		{"api list", "/api/posts", http.StatusOK, "application/json"},
		{"api detail", "/api/posts/1", http.StatusOK, "application/json"},
		{"api missing detail", "/api/posts/99", http.StatusNotFound, "application/json"},
		{"api invalid id", "/api/posts/invalid", http.StatusNotFound, "application/json"},
		{"healthz", "/healthz", http.StatusOK, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
		})
	}

	t.Run("api list body", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
		var response struct {
			Posts []models.Post `json:"posts"`
			Total int           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Total)
		require.Len(t, response.Posts, 1)
		assert.Equal(t, "Test Post", response.Posts[0].Title)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupTestApp(t)
	app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "quill_http_requests_total")
	assert.Contains(t, body, `route="healthz"`)
	assert.Contains(t, body, "quill_posts_created_total")
}
