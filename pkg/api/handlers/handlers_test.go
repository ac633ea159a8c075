package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gtank/ristretto255"

	"github.com/marmos91/star-randsrv/internal/oprfstate"
)

func testState(t *testing.T) *oprfstate.State {
	t.Helper()
	s, err := oprfstate.New(oprfstate.Range{First: 12, Last: 24})
	if err != nil {
		t.Fatalf("oprfstate.New: %v", err)
	}
	return s
}

func testPointB64(t *testing.T) string {
	t.Helper()
	scalar := ristretto255.NewScalar().FromUniformBytes(bytes.Repeat([]byte{0x11}, 64))
	point := ristretto255.NewElement().ScalarBaseMult(scalar)
	return base64.StdEncoding.EncodeToString(point.Encode(nil))
}

func TestWelcome_ReturnsNonEmptyBody(t *testing.T) {
	h := New(testState(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.Welcome(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected a non-empty welcome body")
	}
}

func TestInfo_ReturnsCurrentEpochAndPublicKey(t *testing.T) {
	h := New(testState(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	w := httptest.NewRecorder()

	h.Info(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.CurrentEpoch != 12 {
		t.Fatalf("expected current epoch 12, got %d", resp.CurrentEpoch)
	}
	if resp.MaxPoints != 1024 {
		t.Fatalf("expected maxPoints 1024, got %d", resp.MaxPoints)
	}
	if _, err := base64.StdEncoding.DecodeString(resp.PublicKey); err != nil {
		t.Fatalf("publicKey did not decode as base64: %v", err)
	}
	if resp.NextEpochTime != nil {
		t.Fatal("expected nextEpochTime to be nil before the scheduler publishes one")
	}
}

func TestRandomness_EvaluatesSubmittedPoints(t *testing.T) {
	h := New(testState(t), nil)
	body := `{"points":["` + testPointB64(t) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/randomness", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp RandomnessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Epoch != 12 {
		t.Fatalf("expected epoch 12, got %d", resp.Epoch)
	}
	if len(resp.Points) != 1 {
		t.Fatalf("expected 1 output point, got %d", len(resp.Points))
	}
}

func TestRandomness_RejectsEmptyBatch(t *testing.T) {
	h := New(testState(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/randomness", strings.NewReader(`{"points":[]}`))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRandomness_RejectsOversizeBatch(t *testing.T) {
	h := New(testState(t), nil)
	p := testPointB64(t)
	points := make([]string, 1025)
	for i := range points {
		points[i] = p
	}
	payload, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/randomness", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRandomness_RejectsUndecodablePoint(t *testing.T) {
	h := New(testState(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/randomness", strings.NewReader(`{"points":["not-valid-base64!!"]}`))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRandomness_RejectsEpochMismatch(t *testing.T) {
	h := New(testState(t), nil)
	mismatched := uint8(99)
	payload, err := json.Marshal(map[string]any{
		"points": []string{testPointB64(t)},
		"epoch":  mismatched,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/randomness", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRandomness_AcceptsMatchingEpoch(t *testing.T) {
	h := New(testState(t), nil)
	matching := uint8(12)
	payload, err := json.Marshal(map[string]any{
		"points": []string{testPointB64(t)},
		"epoch":  matching,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/randomness", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRandomness_RejectsMalformedJSON(t *testing.T) {
	h := New(testState(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/randomness", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	h.Randomness(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
