package usecase

import (
	"context"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// CounterpartyUseCase backs the bad-actor / whitelist filter every
// conversion handler consults before moving value (spec §7).
type CounterpartyUseCase struct {
	repo CounterpartyRepository
}

// NewCounterpartyUseCase creates a new CounterpartyUseCase.
func NewCounterpartyUseCase(repo CounterpartyRepository) *CounterpartyUseCase {
	return &CounterpartyUseCase{repo: repo}
}

// IsBlacklisted reports whether name is barred from moving value through
// the bridge. An unknown name is treated as allowed (allow-by-default,
// deny-by-exception, matching the Python original's bad-actors list).
func (uc *CounterpartyUseCase) IsBlacklisted(ctx context.Context, name string) (bool, error) {
	c, err := uc.repo.Get(ctx, name)
	if err != nil {
		if err == domain.ErrCounterpartyNotFound {
			return false, nil
		}
		return false, err
	}
	return c.IsBlacklisted(), nil
}

// SetStatus upserts a counterparty's status, used by the admin surface.
func (uc *CounterpartyUseCase) SetStatus(ctx context.Context, name string, status domain.CounterpartyStatus, note string) error {
	return uc.repo.Upsert(ctx, &domain.Counterparty{
		Name:      name,
		Status:    status,
		Note:      note,
		UpdatedAt: time.Now().UTC(),
	})
}
