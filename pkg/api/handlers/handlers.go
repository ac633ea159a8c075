// Package handlers implements the randomness oracle's three HTTP routes:
// the welcome text, the info endpoint, and the randomness evaluation
// endpoint.
package handlers

import (
	"time"

	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
)

// Handlers bundles the dependencies the randomness oracle's routes need:
// the shared state cell and, optionally, a metrics recorder.
type Handlers struct {
	state   *oprfstate.State
	metrics *metrics.Metrics
}

// New creates a Handlers bound to state. m may be nil, in which case
// evaluation-duration metrics are simply not recorded.
func New(state *oprfstate.State, m *metrics.Metrics) *Handlers {
	return &Handlers{state: state, metrics: m}
}

func (h *Handlers) observeEvaluation(d time.Duration) {
	if h.metrics != nil {
		h.metrics.ObserveEvaluation(d)
	}
}
