package controllers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"quill/app/middleware"
	"quill/app/models"
	"quill/app/views"
)

// Page carries the values every layout needs
type Page struct {
	Title       string
	CurrentUser *models.User
	CSRFToken   string
}

func newPage(r *http.Request, title string) Page {
	return Page{
		Title:       title,
		CurrentUser: middleware.CurrentUser(r.Context()),
		CSRFToken:   middleware.CSRFToken(r.Context()),
	}
}

// loadTemplates parses every page together with the shared layout
func loadTemplates() map[string]*template.Template {
	pages := map[string]string{
		"posts/index":      "posts/index.html",
		"posts/show":       "posts/show.html",
		"posts/new":        "posts/new.html",
		"posts/not_author": "posts/not_author.html",
		"auth/login":       "auth/login.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		templates[name] = template.Must(template.ParseFS(views.FS, "layout.html", file))
	}
	return templates
}

// renderTemplate executes into a buffer first so a failing template never
// leaves a half-written response behind
func renderTemplate(w http.ResponseWriter, tmpl *template.Template, status int, data interface{}) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
	return nil
}

func isAPIRequest(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || strings.HasPrefix(r.URL.Path, "/api")
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if isAPIRequest(r) {
		sendJSON(w, status, map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}
