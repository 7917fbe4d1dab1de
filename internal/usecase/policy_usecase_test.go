package usecase

import (
	"context"
	"errors"
	"testing"
)

type fakePolicyRepository struct {
	blob map[string]any
	err  error
	n    int
}

func (f *fakePolicyRepository) LoadRawPolicy(ctx context.Context) (map[string]any, error) {
	f.n++
	if f.err != nil {
		return nil, f.err
	}
	return f.blob, nil
}

func TestPolicyUseCaseReload(t *testing.T) {
	t.Parallel()

	t.Run("parses a valid blob", func(t *testing.T) {
		repo := &fakePolicyRepository{blob: map[string]any{
			"min_invoice_sats": float64(1000),
			"max_invoice_sats": float64(1000000),
		}}
		uc := NewPolicyUseCase(repo)

		p, err := uc.Reload(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.MinInvoiceSats != 1000 || p.MaxInvoiceSats != 1000000 {
			t.Fatalf("expected parsed fields, got %+v", p)
		}
	})

	t.Run("repo error with no prior cache propagates", func(t *testing.T) {
		repo := &fakePolicyRepository{err: errors.New("source unreachable")}
		uc := NewPolicyUseCase(repo)

		_, err := uc.Reload(context.Background())
		if err == nil {
			t.Fatalf("expected error when source unreachable and no cache")
		}
	})

	t.Run("repo error after a successful load serves stale policy", func(t *testing.T) {
		repo := &fakePolicyRepository{blob: map[string]any{"min_invoice_sats": float64(500)}}
		uc := NewPolicyUseCase(repo)
		ctx := context.Background()

		first, err := uc.Reload(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		repo.err = errors.New("source unreachable")
		second, err := uc.Reload(ctx)
		if err != nil {
			t.Fatalf("expected stale policy served without error, got %v", err)
		}
		if second.MinInvoiceSats != first.MinInvoiceSats {
			t.Fatalf("expected stale policy to match prior load")
		}
	})
}

func TestPolicyUseCaseCurrentCachesWithinInterval(t *testing.T) {
	t.Parallel()

	repo := &fakePolicyRepository{blob: map[string]any{"min_invoice_sats": float64(100)}}
	uc := NewPolicyUseCase(repo)
	ctx := context.Background()

	if _, err := uc.Current(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := uc.Current(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if repo.n != 1 {
		t.Fatalf("expected a single repo load within the refresh interval, got %d", repo.n)
	}
}
