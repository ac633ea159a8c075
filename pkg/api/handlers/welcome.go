package handlers

import "net/http"

// Welcome serves GET /: a non-empty, human-readable identifying line. It
// carries no machine-readable payload; /info is the endpoint clients poll
// for that.
func (h *Handlers) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("STAR randomness oracle\n"))
}
