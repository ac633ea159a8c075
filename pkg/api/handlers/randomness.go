package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gtank/ristretto255"

	"github.com/marmos91/star-randsrv/internal/oprfstate"
	"github.com/marmos91/star-randsrv/internal/ppoprf"
	"github.com/marmos91/star-randsrv/pkg/api"
)

// RandomnessRequest is the body expected by POST /randomness.
type RandomnessRequest struct {
	Points []string `json:"points"`
	Epoch  *uint8   `json:"epoch,omitempty"`
}

// RandomnessResponse is the body returned by POST /randomness.
type RandomnessResponse struct {
	Points []string `json:"points"`
	Epoch  uint8    `json:"epoch"`
}

// Randomness serves POST /randomness: it validates the request, then
// evaluates every submitted point under a single read snapshot of the
// state cell so the reported epoch matches the epoch every point was
// actually evaluated under.
func (h *Handlers) Randomness(w http.ResponseWriter, r *http.Request) {
	var req RandomnessRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if len(req.Points) == 0 {
		badRequest(w, "points must be a non-empty array")
		return
	}
	if len(req.Points) > api.DefaultMaxPoints {
		badRequest(w, "points exceeds the maximum batch size")
		return
	}

	decoded := make([]*ristretto255.Element, len(req.Points))
	for i, encoded := range req.Points {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			badRequest(w, "point is not valid base64")
			return
		}
		point, err := ppoprf.DecodePoint(raw)
		if err != nil {
			badRequest(w, "point does not decode to a valid group element")
			return
		}
		decoded[i] = point
	}

	var (
		resp     RandomnessResponse
		mismatch bool
		failed   bool
	)
	start := time.Now()
	h.state.View(func(v oprfstate.View) {
		if req.Epoch != nil && *req.Epoch != v.CurrentEpoch {
			mismatch = true
			return
		}
		outputs := make([]string, len(decoded))
		for i, d := range decoded {
			out, err := v.Evaluate(d)
			if err != nil {
				failed = true
				return
			}
			outputs[i] = base64.StdEncoding.EncodeToString(ppoprf.EncodePoint(out))
		}
		resp.Points = outputs
		resp.Epoch = v.CurrentEpoch
	})
	h.observeEvaluation(time.Since(start))

	if mismatch {
		badRequest(w, "epoch does not match the currently served epoch")
		return
	}
	if failed {
		internalServerError(w, "evaluation failed")
		return
	}
	api.JSON(w, http.StatusOK, resp)
}
