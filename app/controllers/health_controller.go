package controllers

import "net/http"

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
