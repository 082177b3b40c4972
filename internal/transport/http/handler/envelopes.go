package handler

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope is the generic informational response wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// SuccessEnvelope acknowledges a completed email-change step.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// ErrorEnvelope carries a human-readable message and a machine-readable kind.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg, Code: code})
}
