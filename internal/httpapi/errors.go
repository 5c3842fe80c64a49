package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"rasad/internal/manager"
	"rasad/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeErrorBody(w, types.ErrorResponse{Error: msg, Code: status})
}

func writeErrorBody(w http.ResponseWriter, body types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an error to its HTTP status; errors without a status are 500.
func statusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status it carries. Upstream chat failures
// include the payload the bot returned.
func writeError(w http.ResponseWriter, err error) {
	body := types.ErrorResponse{Error: err.Error(), Code: statusFor(err)}
	if raw := manager.UpstreamBody(err); len(raw) > 0 {
		if json.Valid(raw) {
			body.Upstream = json.RawMessage(raw)
		} else {
			s, _ := json.Marshal(string(raw))
			body.Upstream = s
		}
	}
	writeErrorBody(w, body)
}
