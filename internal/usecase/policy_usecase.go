package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// policyRefreshInterval bounds how often the live operator policy blob is
// re-fetched from its source of truth; the conversion engine always reads
// through this cache rather than hitting the chain per call.
const policyRefreshInterval = 30 * time.Second

// PolicyUseCase exposes the typed, validated Policy to the rest of the
// system (spec §9 "Dynamic-config objects" — callers never see the raw blob).
type PolicyUseCase struct {
	repo PolicyRepository

	mu        sync.RWMutex
	cached    *domain.Policy
	fetchedAt time.Time
}

// NewPolicyUseCase creates a new PolicyUseCase.
func NewPolicyUseCase(repo PolicyRepository) *PolicyUseCase {
	return &PolicyUseCase{repo: repo}
}

// Current returns the live policy, refreshing from the repository when the
// cached copy has aged past policyRefreshInterval.
func (uc *PolicyUseCase) Current(ctx context.Context) (*domain.Policy, error) {
	uc.mu.RLock()
	if uc.cached != nil && time.Since(uc.fetchedAt) < policyRefreshInterval {
		p := uc.cached
		uc.mu.RUnlock()
		return p, nil
	}
	uc.mu.RUnlock()

	return uc.Reload(ctx)
}

// Reload forces a fresh fetch-and-parse of the policy blob, bypassing the
// refresh interval. Used by the admin policy-reload endpoint.
func (uc *PolicyUseCase) Reload(ctx context.Context) (*domain.Policy, error) {
	raw, err := uc.repo.LoadRawPolicy(ctx)
	if err != nil {
		uc.mu.RLock()
		stale := uc.cached
		uc.mu.RUnlock()
		if stale != nil {
			// Source unreachable: serve the last known-good policy rather
			// than fail every in-flight conversion.
			return stale, nil
		}
		return nil, err
	}

	policy, err := domain.ParsePolicy(raw)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	uc.cached = policy
	uc.fetchedAt = time.Now().UTC()
	uc.mu.Unlock()

	return policy, nil
}
