package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validEntry() *LedgerEntry {
	return &LedgerEntry{
		ID:          "id1",
		GroupID:     "grp1",
		LedgerType:  LedgerDepositHive,
		Timestamp:   time.Now(),
		Description: "deposit",
		Debit:       AccountTuple{Type: AccountAsset, Name: "hive_hot_wallet"},
		Credit:      AccountTuple{Type: AccountLiability, Name: "user", Sub: "alice"},
		Amount:      1000,
		Unit:        UnitHIVE,
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid entry passes", func(t *testing.T) {
		if err := validEntry().Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing debit account type", func(t *testing.T) {
		e := validEntry()
		e.Debit.Type = ""
		if err := e.Validate(); !errors.Is(err, ErrUnbalancedAccountType) {
			t.Fatalf("expected ErrUnbalancedAccountType, got %v", err)
		}
	})

	t.Run("missing credit account type", func(t *testing.T) {
		e := validEntry()
		e.Credit.Type = ""
		if err := e.Validate(); !errors.Is(err, ErrUnbalancedAccountType) {
			t.Fatalf("expected ErrUnbalancedAccountType, got %v", err)
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		e := validEntry()
		e.Amount = 0
		if err := e.Validate(); !errors.Is(err, ErrNonPositiveAmount) {
			t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
		}
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		e := validEntry()
		e.Amount = -5
		if err := e.Validate(); !errors.Is(err, ErrNonPositiveAmount) {
			t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
		}
	})

	t.Run("unrecognized unit rejected", func(t *testing.T) {
		e := validEntry()
		e.Unit = "DOGE"
		if err := e.Validate(); !errors.Is(err, ErrUnitMismatch) {
			t.Fatalf("expected ErrUnitMismatch, got %v", err)
		}
	})
}

func TestNetPosition(t *testing.T) {
	t.Parallel()

	conv := ConvSnapshot{
		Hive:  decimal.NewFromFloat(0.5),
		HBD:   decimal.NewFromFloat(1.0),
		Msats: decimal.NewFromInt(1000),
	}

	t.Run("msats passes through unconverted", func(t *testing.T) {
		details := &LedgerAccountDetails{
			PerUnitTotals: map[Unit]int64{UnitMSATS: 42},
		}
		got := NetPosition(details, conv)
		if !got.Equal(decimal.NewFromInt(42)) {
			t.Fatalf("expected 42, got %s", got)
		}
	})

	t.Run("hive converts via msats/hive ratio", func(t *testing.T) {
		details := &LedgerAccountDetails{
			PerUnitTotals: map[Unit]int64{UnitHIVE: 10},
		}
		got := NetPosition(details, conv)
		want := decimal.NewFromInt(10).Mul(conv.Msats).Div(conv.Hive)
		if !got.Equal(want) {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})

	t.Run("mixed units sum together", func(t *testing.T) {
		details := &LedgerAccountDetails{
			PerUnitTotals: map[Unit]int64{UnitHIVE: 2, UnitMSATS: 100},
		}
		got := NetPosition(details, conv)
		want := decimal.NewFromInt(2).Mul(conv.Msats).Div(conv.Hive).Add(decimal.NewFromInt(100))
		if !got.Equal(want) {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})

	t.Run("empty totals yields zero", func(t *testing.T) {
		details := &LedgerAccountDetails{PerUnitTotals: map[Unit]int64{}}
		got := NetPosition(details, conv)
		if !got.Equal(decimal.Zero) {
			t.Fatalf("expected zero, got %s", got)
		}
	})
}
