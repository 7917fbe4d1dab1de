package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is one of the five double-entry account classes.
type AccountType string

const (
	AccountAsset     AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountEquity    AccountType = "Equity"
	AccountRevenue   AccountType = "Revenue"
	AccountExpense   AccountType = "Expense"
)

// Unit is the native smallest-unit currency of a ledger entry.
type Unit string

const (
	UnitHIVE  Unit = "HIVE"
	UnitHBD   Unit = "HBD"
	UnitMSATS Unit = "MSATS"
)

// LedgerType enumerates the exhaustive set of entry kinds (spec §6).
type LedgerType string

const (
	LedgerDepositHive           LedgerType = "deposit_hive"
	LedgerDepositLN             LedgerType = "deposit_ln"
	LedgerWithdrawHive          LedgerType = "withdraw_hive"
	LedgerWithdrawLN            LedgerType = "withdraw_ln"
	LedgerConvHiveToSats        LedgerType = "conv_hive_to_sats"
	LedgerConvSatsToHive        LedgerType = "conv_sats_to_hive"
	LedgerConvContra            LedgerType = "conv_contra"
	LedgerInternalTransfer      LedgerType = "internal_transfer"
	LedgerFeeConversion         LedgerType = "fee_conversion"
	LedgerFeeLNRouting          LedgerType = "fee_ln_routing"
	LedgerFeeExpense            LedgerType = "fee_expense"
	LedgerExcConv               LedgerType = "exc_conv"
	LedgerExcFee                LedgerType = "exc_fee"
	LedgerOwnerLoan             LedgerType = "owner_loan"
	LedgerReclassifySats        LedgerType = "reclassify_sats"
	LedgerReclassifyHive        LedgerType = "reclassify_hive"
	LedgerBalanceAdjustmentNoop LedgerType = "balance_adjustment_noop"
)

// AccountTuple identifies a ledger account.
type AccountTuple struct {
	Type AccountType
	Name string
	Sub  string
}

// ConvSnapshot freezes cross-currency rates at the moment an entry is
// posted. Per DESIGN.md open-question decision, this is never re-derived.
type ConvSnapshot struct {
	Hive  decimal.Decimal
	HBD   decimal.Decimal
	Msats decimal.Decimal
	USD   decimal.Decimal
}

// LedgerEntry is one balanced debit/credit row (spec §3).
type LedgerEntry struct {
	ID          string
	GroupID     string
	LedgerType  LedgerType
	Timestamp   time.Time
	Description string
	Debit       AccountTuple
	Credit      AccountTuple
	Amount      int64 // smallest unit of Unit; always > 0
	Unit        Unit
	Conv        ConvSnapshot
	Notes       string
}

var (
	ErrDuplicateEntry        = errors.New("ledger: an entry already exists for this group_id and ledger_type")
	ErrUnbalancedAccountType = errors.New("ledger: debit and credit account_type must both be defined")
	ErrNonPositiveAmount     = errors.New("ledger: amount must be positive")
	ErrUnitMismatch          = errors.New("ledger: unrecognized unit")
)

// Validate enforces the per-entry invariants of spec §3.
func (e *LedgerEntry) Validate() error {
	if e.Debit.Type == "" || e.Credit.Type == "" {
		return ErrUnbalancedAccountType
	}
	if e.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	switch e.Unit {
	case UnitHIVE, UnitHBD, UnitMSATS:
	default:
		return ErrUnitMismatch
	}
	return nil
}

// LedgerAccountDetails is the shape returned by balance queries (spec §4.6).
type LedgerAccountDetails struct {
	Account         AccountTuple
	PerUnitTotals   map[Unit]int64
	PerUnitHistory  map[Unit][]BalancePoint
	InProgressMsats int64
}

// BalancePoint is one sample in a per-unit historical balance series.
type BalancePoint struct {
	AsOf   time.Time
	Amount int64
}

// NetPosition returns the net signed balance across all units converted to
// msats using the supplied snapshot rates, for display purposes only (spec
// §9: never sum across units internally, the display boundary may net them).
func NetPosition(details *LedgerAccountDetails, conv ConvSnapshot) decimal.Decimal {
	net := decimal.Zero
	for unit, amount := range details.PerUnitTotals {
		d := decimal.NewFromInt(amount)
		switch unit {
		case UnitHIVE:
			net = net.Add(d.Mul(conv.Msats).Div(conv.Hive))
		case UnitHBD:
			net = net.Add(d.Mul(conv.Msats).Div(conv.HBD))
		case UnitMSATS:
			net = net.Add(d)
		}
	}
	return net
}
