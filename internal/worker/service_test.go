package worker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/detectors"
	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxBodyBytes: 1 << 20,
		CacheSize:    100,
	}
}

func newTestService(t *testing.T, strict bool) (*Service, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	det, err := detectors.NewLayeringDetector(detectors.DefaultLayeringConfig())
	if err != nil {
		t.Fatalf("Failed to build detector: %v", err)
	}
	svc, err := New(det, 100, strict)
	if err != nil {
		t.Fatalf("Failed to build service: %v", err)
	}
	return svc, svc.Router(testConfig())
}

func spoofEvents() []models.TransactionEvent {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	ev := func(offset time.Duration, side models.Side, et models.EventType, qty int64) models.TransactionEvent {
		return models.TransactionEvent{
			Timestamp: start.Add(offset),
			AccountID: "ACC-1",
			ProductID: "PROD-X",
			Side:      side,
			Price:     models.MustPrice("100"),
			Quantity:  qty,
			EventType: et,
		}
	}
	return []models.TransactionEvent{
		ev(0, models.SideBuy, models.EventOrderPlaced, 500),
		ev(time.Second, models.SideBuy, models.EventOrderPlaced, 500),
		ev(2*time.Second, models.SideBuy, models.EventOrderPlaced, 500),
		ev(3*time.Second, models.SideBuy, models.EventOrderCancelled, 500),
		ev(4*time.Second, models.SideBuy, models.EventOrderCancelled, 500),
		ev(5*time.Second, models.SideBuy, models.EventOrderCancelled, 500),
		ev(6*time.Second, models.SideSell, models.EventTradeExecuted, 300),
	}
}

func postDetect(t *testing.T, router *gin.Engine, req models.DetectRequest) (*httptest.ResponseRecorder, models.DetectResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/detect", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, httpReq)

	var resp models.DetectResponse
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return w, resp
}

func TestWorker_DetectsAndCachesRepeatPayloads(t *testing.T) {
	svc, router := newTestService(t, false)
	evts := spoofEvents()
	req := models.DetectRequest{
		RequestID:        "req-1",
		EventFingerprint: events.Fingerprint(evts),
		Events:           evts,
	}

	w, resp := postDetect(t, router, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200. Got: %d (%s)", w.Code, w.Body.String())
	}
	if resp.Cached {
		t.Errorf("Expected the first request to compute")
	}
	if resp.ServiceName != "layering" {
		t.Errorf("Expected service name layering. Got: %s", resp.ServiceName)
	}
	if len(resp.Sequences) != 1 {
		t.Fatalf("Expected 1 sequence. Got: %d", len(resp.Sequences))
	}

	w, resp = postDetect(t, router, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on replay. Got: %d", w.Code)
	}
	if !resp.Cached {
		t.Errorf("Expected the replay to be served from the cache")
	}
	if len(resp.Sequences) != 1 {
		t.Errorf("Expected the cached sequences to replay. Got: %d", len(resp.Sequences))
	}
	if svc.Detections() != 1 {
		t.Errorf("Expected exactly one detector execution. Got: %d", svc.Detections())
	}
}

func TestWorker_DistinctRequestsRecompute(t *testing.T) {
	svc, router := newTestService(t, false)
	evts := spoofEvents()
	fp := events.Fingerprint(evts)

	postDetect(t, router, models.DetectRequest{RequestID: "req-1", EventFingerprint: fp, Events: evts})
	postDetect(t, router, models.DetectRequest{RequestID: "req-2", EventFingerprint: fp, Events: evts})
	if svc.Detections() != 2 {
		t.Errorf("Expected a new request id to recompute. Got %d executions", svc.Detections())
	}
}

func TestWorker_RejectsMissingIdentity(t *testing.T) {
	_, router := newTestService(t, false)
	w, _ := postDetect(t, router, models.DetectRequest{Events: spoofEvents()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without request identity. Got: %d", w.Code)
	}
}

func TestWorker_StrictModeRejectsFingerprintMismatch(t *testing.T) {
	svc, router := newTestService(t, true)
	w, _ := postDetect(t, router, models.DetectRequest{
		RequestID:        "req-1",
		EventFingerprint: "0000000000000000000000000000000000000000000000000000000000000000",
		Events:           spoofEvents(),
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 on a fingerprint mismatch. Got: %d", w.Code)
	}
	if svc.Detections() != 0 {
		t.Errorf("Expected no detector execution on a rejected request. Got: %d", svc.Detections())
	}
}

func TestWorker_StrictModeAcceptsTrailingZeroPrices(t *testing.T) {
	// The fingerprint hashes the price source text, so a payload parsed from
	// "100.50" must re-verify identically after the JSON hop.
	svc, router := newTestService(t, true)
	evts := spoofEvents()
	for i := range evts {
		evts[i].Price = models.MustPrice("100.50")
	}
	w, resp := postDetect(t, router, models.DetectRequest{
		RequestID:        "req-1",
		EventFingerprint: events.Fingerprint(evts),
		Events:           evts,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected strict mode to accept a matching fingerprint. Got: %d (%s)", w.Code, w.Body.String())
	}
	if resp.Cached {
		t.Errorf("Expected a fresh computation")
	}
	if svc.Detections() != 1 {
		t.Errorf("Expected one detector execution. Got: %d", svc.Detections())
	}
}

func TestWorker_EmptyBatchYieldsEmptySequences(t *testing.T) {
	_, router := newTestService(t, false)
	w, resp := postDetect(t, router, models.DetectRequest{
		RequestID:        "req-1",
		EventFingerprint: events.Fingerprint(nil),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for an empty batch. Got: %d", w.Code)
	}
	if resp.Sequences == nil || len(resp.Sequences) != 0 {
		t.Errorf("Expected an empty, non-null sequence list. Got: %v", resp.Sequences)
	}
}
