package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/star-randsrv/pkg/api"
)

// decodeJSONBody decodes a JSON request body into v. On failure it writes a
// 400 response and returns false; callers should return immediately.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "malformed request body")
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, msg string) {
	api.Error(w, http.StatusBadRequest, msg)
}

func internalServerError(w http.ResponseWriter, msg string) {
	api.Error(w, http.StatusInternalServerError, msg)
}
