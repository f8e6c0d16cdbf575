package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/racecar/internal/monitoring"
)

// ErrorResponse is the body of every non-2xx API reply. GetJSON decodes it
// back into the returned error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status. Encoding failures are logged;
// the status line has already gone out by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("httputil: encode %T: %v", v, err)
	}
}

func WriteJSONOK(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusOK, v) }

func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func BadRequest(w http.ResponseWriter, msg string) { WriteJSONError(w, http.StatusBadRequest, msg) }
func NotFound(w http.ResponseWriter, msg string)   { WriteJSONError(w, http.StatusNotFound, msg) }

// ServiceUnavailable reports a feature switched off for this run, such as
// telemetry without a database.
func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusServiceUnavailable, msg)
}

func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}
