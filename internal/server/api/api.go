// Package api provides the JSON handlers of the gesturesynth HTTP API.
package api

import (
	"encoding/json"
	"net/http"

	log "github.com/echocat/slf4g"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.WithError(err).Debug("Cannot write response.")
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
