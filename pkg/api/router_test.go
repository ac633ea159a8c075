package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	state, err := oprfstate.New(oprfstate.Range{First: 0, Last: 5})
	if err != nil {
		t.Fatalf("oprfstate.New: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	return NewRouter(state, m)
}

func TestRouter_WelcomeRoute(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouter_InfoRoute(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "currentEpoch") {
		t.Fatalf("expected body to contain currentEpoch, got %s", w.Body.String())
	}
}

func TestRouter_RandomnessRoute_RejectsEmptyBody(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/randomness", strings.NewReader(""))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/not-a-route", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
