package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// JSONSuccess writes {success: true, data, message}.
func JSONSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	writeJSON(w, statusCode, Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// JSONError writes {success: false, message}.
func JSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Envelope{
		Success: false,
		Message: message,
	})
}

// JSONServerError writes a 500 envelope. The error text is included only
// when expose is set, i.e. outside production.
func JSONServerError(w http.ResponseWriter, message string, err error, expose bool) {
	env := Envelope{
		Success: false,
		Message: message,
	}
	if expose && err != nil {
		env.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, env)
}

// NotFound answers every unmatched route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSONError(w, http.StatusNotFound, "Route not found")
}
