package usecase

import (
	"context"
	"errors"
	"testing"
)

type fakeHealthProbe struct {
	name string
	err  error
}

func (f fakeHealthProbe) Name() string { return f.name }

func (f fakeHealthProbe) Ping(ctx context.Context) error { return f.err }

func TestHealthUseCaseCheckAll(t *testing.T) {
	t.Parallel()

	t.Run("all healthy", func(t *testing.T) {
		uc := NewHealthUseCase([]HealthProbe{
			fakeHealthProbe{name: "postgres"},
			fakeHealthProbe{name: "redis"},
		})

		results := uc.CheckAll(context.Background())
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if !AllHealthy(results) {
			t.Fatalf("expected all healthy")
		}
	})

	t.Run("one failing probe fails AllHealthy but does not block others", func(t *testing.T) {
		uc := NewHealthUseCase([]HealthProbe{
			fakeHealthProbe{name: "postgres"},
			fakeHealthProbe{name: "lnd", err: errors.New("connection refused")},
		})

		results := uc.CheckAll(context.Background())
		if AllHealthy(results) {
			t.Fatalf("expected not all healthy")
		}

		var sawPostgres, sawLndFailure bool
		for _, r := range results {
			if r.Name == "postgres" && r.Healthy {
				sawPostgres = true
			}
			if r.Name == "lnd" && !r.Healthy && r.Detail == "connection refused" {
				sawLndFailure = true
			}
		}
		if !sawPostgres || !sawLndFailure {
			t.Fatalf("expected both independent results to be recorded, got %+v", results)
		}
	})

	t.Run("no probes yields empty, vacuously healthy result", func(t *testing.T) {
		uc := NewHealthUseCase(nil)
		results := uc.CheckAll(context.Background())
		if len(results) != 0 {
			t.Fatalf("expected no results, got %d", len(results))
		}
		if !AllHealthy(results) {
			t.Fatalf("expected vacuously healthy")
		}
	})
}
