package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// ErrorResponse is the JSON body written for rejected requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError maps err to its status and writes an ErrorResponse. Causes of
// internal errors are never exposed.
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: string(auth.KindInternal), Message: "internal error"}
	status := http.StatusInternalServerError

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		status = authErr.Status()
		resp.Error = string(authErr.Kind)
		resp.Message = authErr.Message
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="recordsapi"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
