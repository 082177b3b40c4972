package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the {"error","code"} envelope with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
