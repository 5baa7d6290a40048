package api

import (
	"encoding/json"
	"net/http"
)

// respondJSON writes payload as JSON with the given status code.
func respondJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// respondDetail writes the executor's error shape: {"detail": message}.
func respondDetail(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"detail": message})
}
