package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/marmos91/star-randsrv/internal/oprfstate"
	"github.com/marmos91/star-randsrv/pkg/api"
)

// InfoResponse is the body returned by GET /info.
type InfoResponse struct {
	CurrentEpoch  uint8   `json:"currentEpoch"`
	NextEpochTime *string `json:"nextEpochTime"`
	MaxPoints     int     `json:"maxPoints"`
	PublicKey     string  `json:"publicKey"`
}

// Info serves GET /info: the current epoch, the next scheduled rotation
// time, the configured points-per-request ceiling, and the PPOPRF public
// key, all read from a single consistent snapshot of the state cell.
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	var resp InfoResponse
	h.state.View(func(v oprfstate.View) {
		resp.CurrentEpoch = v.CurrentEpoch
		resp.MaxPoints = api.DefaultMaxPoints
		resp.PublicKey = base64.StdEncoding.EncodeToString(v.PublicKey())
		if v.NextEpochTime != nil {
			formatted := v.NextEpochTime.UTC().Truncate(time.Second).Format(time.RFC3339)
			resp.NextEpochTime = &formatted
		}
	})
	api.JSON(w, http.StatusOK, resp)
}
