//go:build !integration

package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telegram-bg-remover/internal/infra/api"
	"telegram-bg-remover/internal/infra/logging"
	"telegram-bg-remover/internal/infra/metrics"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	h := api.NewServer(0, stubChecker{}, logging.Nop()).Router()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("/health = %d %q", rec.Code, rec.Body.String())
	}
	rec := get(t, h, "/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("/ready = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("trace id header missing")
	}
}

func TestReady_ProviderDown(t *testing.T) {
	h := api.NewServer(0, stubChecker{err: errors.New("rembg down")}, logging.Nop()).Router()
	if rec := get(t, h, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/ready = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.MustRegister()
	metrics.IncPhotoReceived()
	h := api.NewServer(0, nil, logging.Nop()).Router()
	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "photos_received_total") {
		t.Fatalf("/metrics missing counters: %d", rec.Code)
	}
}

func TestTraceID_PropagatesIncomingHeader(t *testing.T) {
	h := api.NewServer(0, nil, logging.Nop()).Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") != "abc123" {
		t.Fatalf("trace id not propagated: %q", rec.Header().Get("X-Request-Id"))
	}
}

func TestRecover(t *testing.T) {
	h := api.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }), api.Recover(logging.Nop()))
	if rec := get(t, h, "/"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic not recovered: %d", rec.Code)
	}
}

func TestRequestLog_CountsByRoutePattern(t *testing.T) {
	metrics.MustRegister()
	h := api.NewServer(0, nil, logging.Nop()).Router()
	get(t, h, "/health")
	get(t, h, "/nope")

	rec := get(t, h, "/metrics")
	body := rec.Body.String()
	if !strings.Contains(body, `admin_http_requests_total{code="200",route="/health"}`) {
		t.Fatalf("health request not counted:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatal("unrouted request not counted as unmatched")
	}
}

func TestShutdown_StopsStartFromAnotherGoroutine(t *testing.T) {
	srv := api.NewServer(0, nil, logging.Nop())
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestStart_AfterShutdownReturnsAtOnce(t *testing.T) {
	srv := api.NewServer(0, nil, logging.Nop())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start after Shutdown = %v", err)
	}
}
