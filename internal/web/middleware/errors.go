package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes {"error": code, "message": message}
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
