package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"quill/app/forms"
	"quill/app/middleware"
	"quill/app/models"
	"quill/app/repositories"
	"quill/app/services"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
	templates   map[string]*template.Template
	logger      zerolog.Logger
	postURL     func(id int) string
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, logger zerolog.Logger) *PostController {
	return &PostController{
		postService: postService,
		templates:   loadTemplates(),
		logger:      logger,
		postURL: func(id int) string {
			return "/posts/" + strconv.Itoa(id)
		},
	}
}

// SetPostURL sets how the detail URL of a post is built
func (pc *PostController) SetPostURL(fn func(id int) string) {
	pc.postURL = fn
}

// Index handles listing posts, newest first
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := 10
	if perPageStr := r.URL.Query().Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 {
			perPage = pp
		}
	}

	posts, total, err := pc.postService.ListPosts(page, perPage)
	if err != nil {
		pc.serverError(w, r, "failed to list posts", err)
		return
	}

	if isAPIRequest(r) {
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"posts":    posts,
			"page":     page,
			"per_page": perPage,
			"total":    total,
		})
		return
	}

	data := struct {
		Page
		Posts    []*models.Post
		Current  int
		PerPage  int
		PrevPage int
		NextPage int
		HasNext  bool
	}{
		Page:     newPage(r, "Posts"),
		Posts:    posts,
		Current:  page,
		PerPage:  perPage,
		PrevPage: page - 1,
		NextPage: page + 1,
		HasNext:  page*perPage < total,
	}

	pc.render(w, r, "posts/index", http.StatusOK, data)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		sendError(w, r, "Invalid post ID", http.StatusBadRequest)
		return
	}

	post, err := pc.postService.GetPost(id)
	if errors.Is(err, repositories.ErrNotFound) {
		sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		pc.serverError(w, r, "failed to load post", err)
		return
	}

	if isAPIRequest(r) {
		sendJSON(w, http.StatusOK, post)
		return
	}

	data := struct {
		Page
		Post *models.Post
	}{
		Page: newPage(r, post.Title),
		Post: post,
	}
	pc.render(w, r, "posts/show", http.StatusOK, data)
}

// Create shows the new-post form on GET and stores a submitted post on POST.
// Must be mounted behind RequireLogin.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if user == nil {
		sendError(w, r, "Authentication required", http.StatusUnauthorized)
		return
	}

	author, err := pc.postService.AuthorFor(user.ID)
	if errors.Is(err, services.ErrNotAuthor) {
		pc.render(w, r, "posts/not_author", http.StatusForbidden, newPage(r, "Not an author"))
		return
	}
	if err != nil {
		pc.serverError(w, r, "failed to load author", err)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		pc.renderForm(w, r, forms.NewPostForm())

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			sendError(w, r, "Failed to parse form", http.StatusBadRequest)
			return
		}

		form := forms.BindPostForm(r.PostForm)
		post, err := pc.postService.CreatePost(author, form)
		var invalid forms.ValidationErrors
		if errors.As(err, &invalid) {
			pc.renderForm(w, r, form)
			return
		}
		if err != nil {
			pc.serverError(w, r, "failed to create post", err)
			return
		}

		pc.logger.Info().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Int("post_id", post.ID).
			Int("author_id", author.ID).
			Msg("post created")
		http.Redirect(w, r, pc.postURL(post.ID), http.StatusSeeOther)

	default:
		sendError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (pc *PostController) renderForm(w http.ResponseWriter, r *http.Request, form *forms.PostForm) {
	data := struct {
		Page
		Form   *forms.PostForm
		Action string
	}{
		Page:   newPage(r, "New post"),
		Form:   form,
		Action: r.URL.Path,
	}
	pc.render(w, r, "posts/new", http.StatusOK, data)
}

func (pc *PostController) render(w http.ResponseWriter, r *http.Request, name string, status int, data interface{}) {
	if err := renderTemplate(w, pc.templates[name], status, data); err != nil {
		pc.serverError(w, r, "failed to render "+name, err)
	}
}

func (pc *PostController) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	pc.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
	sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
}
