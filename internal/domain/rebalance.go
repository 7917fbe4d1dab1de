package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RebalanceDirection mirrors the conversion flow that fed the accumulator.
type RebalanceDirection string

const (
	DirectionSellBaseForQuote RebalanceDirection = "SellBaseForQuote"
	DirectionBuyBaseWithQuote RebalanceDirection = "BuyBaseWithQuote"
)

var (
	ErrRebalanceVersionConflict = errors.New("rebalance: optimistic lock conflict, reload and retry")
	ErrNegativePendingQty       = errors.New("rebalance: pending_qty cannot go negative")
)

// PendingRebalance accumulates sub-minimum conversions per
// (base, quote, direction, exchange) until exchange minima are cleared.
type PendingRebalance struct {
	ID                    string
	BaseAsset             string
	QuoteAsset            string
	Exchange              string
	Direction             RebalanceDirection
	PendingQty            decimal.Decimal
	PendingQuoteValue     decimal.Decimal
	MinQtyThreshold       decimal.Decimal
	MinNotionalThreshold  decimal.Decimal
	TransactionCount      int
	TransactionIDs        []string
	TotalExecutedQty      decimal.Decimal
	ExecutionCount        int
	Version               int64
	UpdatedAt             time.Time
}

// Eligible reports whether both the lot-size and notional minima are met.
func (p *PendingRebalance) Eligible() bool {
	return p.PendingQty.GreaterThanOrEqual(p.MinQtyThreshold) &&
		p.PendingQuoteValue.GreaterThanOrEqual(p.MinNotionalThreshold)
}

// Accumulate adds a new conversion's contribution to the pool.
func (p *PendingRebalance) Accumulate(qty, quoteValue decimal.Decimal, groupID string) error {
	next := p.PendingQty.Add(qty)
	if next.IsNegative() {
		return ErrNegativePendingQty
	}
	p.PendingQty = next
	p.PendingQuoteValue = p.PendingQuoteValue.Add(quoteValue)
	p.TransactionCount++
	p.TransactionIDs = append(p.TransactionIDs, groupID)
	return nil
}

// NetOpposingPending nets two PendingRebalance rows for the same (base,
// quote, exchange) pair that accumulate opposite directions (spec §4.8
// "Netting (opposing flows)"): the smaller side's nominal and quote value
// are folded into the larger side and then zeroed, so only the net
// direction's residual continues toward the exchange minima.
func NetOpposingPending(a, b *PendingRebalance) {
	if a.Direction == b.Direction {
		return
	}
	switch {
	case a.PendingQty.GreaterThan(b.PendingQty):
		netIntoLarger(a, b)
	case b.PendingQty.GreaterThan(a.PendingQty):
		netIntoLarger(b, a)
	default:
		a.zeroPending()
		b.zeroPending()
	}
}

// netIntoLarger reduces larger by smaller's full nominal and quote value,
// then zeroes smaller.
func netIntoLarger(larger, smaller *PendingRebalance) {
	larger.PendingQty = larger.PendingQty.Sub(smaller.PendingQty)
	larger.PendingQuoteValue = larger.PendingQuoteValue.Sub(smaller.PendingQuoteValue)
	if larger.PendingQuoteValue.IsNegative() {
		larger.PendingQuoteValue = decimal.Zero
	}
	larger.TransactionIDs = append(larger.TransactionIDs, smaller.TransactionIDs...)
	larger.TransactionCount += smaller.TransactionCount
	smaller.zeroPending()
}

func (p *PendingRebalance) zeroPending() {
	p.PendingQty = decimal.Zero
	p.PendingQuoteValue = decimal.Zero
	p.TransactionIDs = nil
	p.TransactionCount = 0
}

// ResetAfterExecution zeroes the pool, carrying forward any unfilled
// remainder (the exchange may not fill the full requested qty).
func (p *PendingRebalance) ResetAfterExecution(filledQty, quoteReceived decimal.Decimal) {
	remainderQty := p.PendingQty.Sub(filledQty)
	if remainderQty.IsNegative() {
		remainderQty = decimal.Zero
	}
	p.TotalExecutedQty = p.TotalExecutedQty.Add(filledQty)
	p.ExecutionCount++
	p.PendingQty = remainderQty
	p.PendingQuoteValue = decimal.Zero
	p.TransactionIDs = nil
	p.TransactionCount = 0
}

// RebalanceResult records one executed (or attempted) exchange trade for
// audit and ledger posting.
type RebalanceResult struct {
	ID                  string
	PendingRebalanceID  string
	GroupIDs            []string
	FilledQty           decimal.Decimal
	QuoteReceived       decimal.Decimal
	AvgPrice            decimal.Decimal
	Fee                 decimal.Decimal
	ExecutedAt          time.Time
	Success             bool
	Error               string
}
