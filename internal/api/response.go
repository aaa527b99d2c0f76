// Package api defines the HTTP handlers for the registration and
// log-retrieval endpoints, plus the Firebase ID-token middleware guarding
// them.
package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform JSON response shape of every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}
