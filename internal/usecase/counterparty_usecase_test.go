package usecase

import (
	"context"
	"testing"

	"github.com/v4vapp/bridge/internal/domain"
)

type fakeCounterpartyRepository struct {
	rows map[string]*domain.Counterparty
}

func newFakeCounterpartyRepository() *fakeCounterpartyRepository {
	return &fakeCounterpartyRepository{rows: make(map[string]*domain.Counterparty)}
}

func (f *fakeCounterpartyRepository) Get(ctx context.Context, name string) (*domain.Counterparty, error) {
	c, ok := f.rows[name]
	if !ok {
		return nil, domain.ErrCounterpartyNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCounterpartyRepository) Upsert(ctx context.Context, c *domain.Counterparty) error {
	cp := *c
	f.rows[c.Name] = &cp
	return nil
}

func TestCounterpartyUseCaseIsBlacklisted(t *testing.T) {
	t.Parallel()

	t.Run("unknown name is allowed by default", func(t *testing.T) {
		uc := NewCounterpartyUseCase(newFakeCounterpartyRepository())
		blacklisted, err := uc.IsBlacklisted(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if blacklisted {
			t.Fatalf("expected unknown name to be allowed")
		}
	})

	t.Run("explicitly blacklisted name is rejected", func(t *testing.T) {
		repo := newFakeCounterpartyRepository()
		uc := NewCounterpartyUseCase(repo)
		ctx := context.Background()

		if err := uc.SetStatus(ctx, "badactor", domain.CounterpartyStatusBlacklisted, "known scammer"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		blacklisted, err := uc.IsBlacklisted(ctx, "badactor")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !blacklisted {
			t.Fatalf("expected badactor to be blacklisted")
		}
	})

	t.Run("explicitly allowed name is not blacklisted", func(t *testing.T) {
		repo := newFakeCounterpartyRepository()
		uc := NewCounterpartyUseCase(repo)
		ctx := context.Background()

		if err := uc.SetStatus(ctx, "goodactor", domain.CounterpartyStatusAllowed, ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		blacklisted, err := uc.IsBlacklisted(ctx, "goodactor")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if blacklisted {
			t.Fatalf("expected goodactor to not be blacklisted")
		}
	})
}
