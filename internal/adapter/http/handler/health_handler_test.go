package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/v4vapp/bridge/internal/usecase"
)

type fakeProbe struct {
	name string
	err  error
}

func (f fakeProbe) Name() string { return f.name }
func (f fakeProbe) Ping(ctx context.Context) error { return f.err }

func TestHealthHandlerLiveness(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(usecase.NewHealthUseCase(nil))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	h.Liveness(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestHealthHandlerReadiness(t *testing.T) {
	t.Parallel()

	t.Run("all dependencies healthy returns 200", func(t *testing.T) {
		healthUC := usecase.NewHealthUseCase([]usecase.HealthProbe{
			fakeProbe{name: "postgres"},
			fakeProbe{name: "redis"},
		})
		h := NewHealthHandler(healthUC)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		h.Readiness(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body["status"] != "ready" {
			t.Fatalf("expected status ready, got %v", body["status"])
		}
	})

	t.Run("one failing dependency returns 503", func(t *testing.T) {
		healthUC := usecase.NewHealthUseCase([]usecase.HealthProbe{
			fakeProbe{name: "postgres"},
			fakeProbe{name: "hive", err: errors.New("no connection")},
		})
		h := NewHealthHandler(healthUC)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		h.Readiness(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body["status"] != "unready" {
			t.Fatalf("expected status unready, got %v", body["status"])
		}
	})

	t.Run("no probes registered is vacuously healthy", func(t *testing.T) {
		h := NewHealthHandler(usecase.NewHealthUseCase(nil))

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		h.Readiness(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})
}
