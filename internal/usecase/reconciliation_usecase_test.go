package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/v4vapp/bridge/internal/domain"
)

func TestReconciliationUseCaseCheckLedgerConsistency(t *testing.T) {
	t.Parallel()

	t.Run("balanced ledger passes", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{domain.UnitHIVE: {Debits: 500, Credits: 500}}
		uc := NewReconciliationUseCase(repo)

		if err := uc.CheckLedgerConsistency(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("unbalanced ledger fails", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{domain.UnitHIVE: {Debits: 500, Credits: 400}}
		uc := NewReconciliationUseCase(repo)

		if err := uc.CheckLedgerConsistency(context.Background()); !errors.Is(err, ErrInconsistentLedger) {
			t.Fatalf("expected ErrInconsistentLedger, got %v", err)
		}
	})
}

func TestReconciliationUseCaseGenerateReconciliationReport(t *testing.T) {
	t.Parallel()

	t.Run("consistent ledger yields no discrepancies", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{
			domain.UnitHIVE:  {Debits: 1000, Credits: 1000},
			domain.UnitMSATS: {Debits: 20, Credits: 20},
		}
		uc := NewReconciliationUseCase(repo)

		report, err := uc.GenerateReconciliationReport(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !report.LedgerConsistent {
			t.Fatalf("expected consistent report")
		}
		if len(report.Discrepancies) != 0 {
			t.Fatalf("expected no discrepancies, got %+v", report.Discrepancies)
		}
		if report.UnitsChecked != 2 {
			t.Fatalf("expected 2 units checked, got %d", report.UnitsChecked)
		}
	})

	t.Run("inconsistent unit is reported with its difference", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{
			domain.UnitHIVE: {Debits: 1000, Credits: 900},
		}
		uc := NewReconciliationUseCase(repo)

		report, err := uc.GenerateReconciliationReport(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.LedgerConsistent {
			t.Fatalf("expected inconsistent report")
		}
		if len(report.Discrepancies) != 1 {
			t.Fatalf("expected 1 discrepancy, got %d", len(report.Discrepancies))
		}
		if report.Discrepancies[0].Difference != 100 {
			t.Fatalf("expected difference 100, got %d", report.Discrepancies[0].Difference)
		}
	})

	t.Run("repo error propagates", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totalsErr = errors.New("db down")
		uc := NewReconciliationUseCase(repo)

		if _, err := uc.GenerateReconciliationReport(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}
