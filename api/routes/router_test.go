package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrichain/agrichain-backend/api/controllers"
	"github.com/agrichain/agrichain-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("X-AgriChain-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	readiness := map[string]controllers.Pinger{
		"database": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	}
	router := NewRouter(testConfig(), nil, readiness, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestHealthReadySkipsNilPingers(t *testing.T) {
	readiness := map[string]controllers.Pinger{
		"database": stubPinger{},
		"redis":    nil,
	}
	router := NewRouter(testConfig(), nil, readiness, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
