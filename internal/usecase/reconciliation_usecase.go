package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// ReconciliationUseCase produces the operator-facing balance-sheet report.
// Balance is aggregation-only in this ledger (no stored Account.Balance
// column), so reconciliation here means re-deriving the per-unit totals
// straight from the journal and comparing them to the cached view, rather
// than comparing a stored balance to a recomputed one as the teacher did.
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case.
func NewReconciliationUseCase(ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{ledgerRepo: ledgerRepo}
}

// UnitDiscrepancy describes one unit whose debits and credits disagree.
type UnitDiscrepancy struct {
	Unit       domain.Unit
	Debits     int64
	Credits    int64
	Difference int64
}

// ReconciliationReport is a full ledger-consistency snapshot.
type ReconciliationReport struct {
	UnitsChecked     int
	Discrepancies    []UnitDiscrepancy
	LedgerConsistent bool
	CheckedAt        time.Time
}

// CheckLedgerConsistency verifies double-entry bookkeeping consistency
// across every unit (spec §8 property 1).
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	totals, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	for unit, t := range totals {
		if t.Debits != t.Credits {
			return fmt.Errorf("%w: unit=%s debits=%d credits=%d", ErrInconsistentLedger, unit, t.Debits, t.Credits)
		}
	}

	return nil
}

// GenerateReconciliationReport reports per-unit debit/credit totals and
// flags any unit where they disagree.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	totals, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		UnitsChecked:     len(totals),
		Discrepancies:    make([]UnitDiscrepancy, 0),
		LedgerConsistent: true,
		CheckedAt:        time.Now().UTC(),
	}

	for unit, t := range totals {
		if t.Debits != t.Credits {
			report.LedgerConsistent = false
			report.Discrepancies = append(report.Discrepancies, UnitDiscrepancy{
				Unit:       unit,
				Debits:     t.Debits,
				Credits:    t.Credits,
				Difference: t.Debits - t.Credits,
			})
		}
	}

	return report, nil
}
