package usecase

import (
	"context"
	"time"
)

// HealthCheck is one dependency's most recent health probe (spec §3
// supplement, grounded on the Python original's db_monitor.py — a
// standalone watchdog over Mongo/Hive/LND liveness that this module folds
// into the admin read surface instead of a separate process).
type HealthCheck struct {
	Name      string
	Healthy   bool
	Detail    string
	CheckedAt time.Time
}

// HealthProbe is implemented by each infrastructure client (postgres,
// redis, hive, lnd) that the health usecase polls.
type HealthProbe interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthUseCase aggregates liveness across every external dependency,
// surfaced at the admin HTTP health endpoint.
type HealthUseCase struct {
	probes []HealthProbe
}

// NewHealthUseCase creates a new HealthUseCase.
func NewHealthUseCase(probes []HealthProbe) *HealthUseCase {
	return &HealthUseCase{probes: probes}
}

// CheckAll polls every registered probe and returns its result; a slow or
// failing dependency does not block the others (probes run concurrently).
func (uc *HealthUseCase) CheckAll(ctx context.Context) []HealthCheck {
	results := make([]HealthCheck, len(uc.probes))
	done := make(chan struct{}, len(uc.probes))

	for i, p := range uc.probes {
		i, p := i, p
		go func() {
			defer func() { done <- struct{}{} }()
			now := time.Now().UTC()
			if err := p.Ping(ctx); err != nil {
				results[i] = HealthCheck{Name: p.Name(), Healthy: false, Detail: err.Error(), CheckedAt: now}
				return
			}
			results[i] = HealthCheck{Name: p.Name(), Healthy: true, CheckedAt: now}
		}()
	}

	for range uc.probes {
		<-done
	}

	return results
}

// AllHealthy reports whether every dependency answered healthy.
func AllHealthy(checks []HealthCheck) bool {
	for _, c := range checks {
		if !c.Healthy {
			return false
		}
	}
	return true
}
