package handlers

import (
	"net/http"
	"time"
)

// Healthz reports service liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "Task Management API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
