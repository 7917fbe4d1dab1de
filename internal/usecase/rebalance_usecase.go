package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
)

// maxRebalanceRetries bounds the read-modify-write retry loop on an
// optimistic-lock conflict (spec §4.8), grounded on the teacher's
// hold_usecase.go read-then-save-if-unchanged pattern.
const maxRebalanceRetries = 5

// RebalanceUseCase decouples the business-level conversion from the
// operational exchange trade: it accumulates sub-minimum quantities into a
// persistent pool per (base, quote, direction, exchange) and executes a
// market order once both the lot-size and notional minima clear (spec §4.8).
type RebalanceUseCase struct {
	repo       RebalanceRepository
	ledgerUC   *LedgerUseCase
	exchange   ExchangeClient
	txManager  TransactionManager
	idGen      IDGenerator
	notifier   Notifier
	outboxRepo OutboxRepository
}

// NewRebalanceUseCase creates a new RebalanceUseCase. outboxRepo may be nil,
// in which case executed trades are never outbox-published (no C9 ping).
func NewRebalanceUseCase(repo RebalanceRepository, ledgerUC *LedgerUseCase, exchange ExchangeClient, txManager TransactionManager, idGen IDGenerator, notifier Notifier, outboxRepo OutboxRepository) *RebalanceUseCase {
	return &RebalanceUseCase{
		repo:       repo,
		ledgerUC:   ledgerUC,
		exchange:   exchange,
		txManager:  txManager,
		idGen:      idGen,
		notifier:   notifier,
		outboxRepo: outboxRepo,
	}
}

// Accumulate folds a newly converted quantity into the pending pool and,
// if thresholds are now met, executes a trade. All exchange I/O is
// best-effort: a failed trade is reported to the notifier as a WARNING and
// the pending row is saved still carrying the just-added contribution, so
// the next eligible event trades it along with its own. The caller's
// conversion must never block, fail, or retry because of this.
func (uc *RebalanceUseCase) Accumulate(ctx context.Context, base, quote, exchange string, direction domain.RebalanceDirection, qty, quoteValue decimal.Decimal, groupID string) {
	var lastErr error
	for attempt := 0; attempt < maxRebalanceRetries; attempt++ {
		done, err := uc.tryAccumulateOnce(ctx, base, quote, exchange, direction, qty, quoteValue, groupID)
		if err == nil {
			return
		}
		lastErr = err
		if !errors.Is(err, domain.ErrRebalanceVersionConflict) {
			break
		}
		_ = done
	}

	if lastErr != nil && uc.notifier != nil {
		uc.notifier.Notify(ctx, NotificationMessage{
			Text:      fmt.Sprintf("rebalance accumulate failed for %s/%s (%s): %v", base, quote, direction, lastErr),
			Severity:  "WARNING",
			Component: "rebalance",
		})
	}
}

func (uc *RebalanceUseCase) tryAccumulateOnce(ctx context.Context, base, quote, exchange string, direction domain.RebalanceDirection, qty, quoteValue decimal.Decimal, groupID string) (bool, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	pending, err := uc.repo.GetOrCreate(ctx, tx, base, quote, exchange, direction)
	if err != nil {
		return false, err
	}

	uc.refreshThresholds(ctx, base, quote, pending)

	if err := pending.Accumulate(qty, quoteValue, groupID); err != nil {
		return false, err
	}

	// Netting (opposing flows, spec §4.8): if the opposite direction also
	// has a pending balance for this (base, quote, exchange), net it
	// against this contribution so only the residual direction trades.
	opposite, err := uc.repo.GetOrCreate(ctx, tx, base, quote, exchange, oppositeDirection(direction))
	if err != nil {
		return false, err
	}
	net := pending
	if opposite.PendingQty.IsPositive() {
		domain.NetOpposingPending(pending, opposite)
		if opposite.PendingQty.GreaterThan(pending.PendingQty) {
			uc.refreshThresholds(ctx, base, quote, opposite)
			net = opposite
		}
		if err := uc.saveOther(ctx, tx, net, pending, opposite); err != nil {
			return false, err
		}
	}

	if net.Eligible() {
		if err := uc.executeLocked(ctx, tx, net); err != nil {
			// Execution failure: preserve the pending row as-is (still
			// carrying the just-added contribution) and surface no error
			// to the caller's conversion path.
			if saveErr := uc.repo.SaveIfUnchanged(ctx, tx, net); saveErr != nil {
				return false, saveErr
			}
			if uc.notifier != nil {
				uc.notifier.Notify(ctx, NotificationMessage{
					Text:      fmt.Sprintf("exchange trade failed for %s/%s on %s: %v", base, quote, exchange, err),
					Severity:  "WARNING",
					Component: "rebalance",
				})
			}
			return false, tx.Commit(ctx)
		}
	} else {
		if err := uc.repo.SaveIfUnchanged(ctx, tx, net); err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}

// oppositeDirection returns the other RebalanceDirection for the same
// (base, quote, exchange) tuple.
func oppositeDirection(d domain.RebalanceDirection) domain.RebalanceDirection {
	if d == domain.DirectionSellBaseForQuote {
		return domain.DirectionBuyBaseWithQuote
	}
	return domain.DirectionSellBaseForQuote
}

// saveOther persists whichever of pending/opposite is not the chosen net
// row, since NetOpposingPending mutated both.
func (uc *RebalanceUseCase) saveOther(ctx context.Context, tx Transaction, net, pending, opposite *domain.PendingRebalance) error {
	other := opposite
	if net == opposite {
		other = pending
	}
	return uc.repo.SaveIfUnchanged(ctx, tx, other)
}

// ListPending returns every accumulator row for the admin read endpoint.
func (uc *RebalanceUseCase) ListPending(ctx context.Context) ([]*domain.PendingRebalance, error) {
	return uc.repo.ListPending(ctx)
}

// refreshThresholds best-effort refreshes exchange minima; on connection
// error it proceeds with the cached thresholds already on the row.
func (uc *RebalanceUseCase) refreshThresholds(ctx context.Context, base, quote string, pending *domain.PendingRebalance) {
	pair := base + quote
	minQty, minNotional, err := uc.exchange.GetMinOrderRequirements(ctx, pair)
	if err != nil {
		return
	}
	pending.MinQtyThreshold = minQty
	pending.MinNotionalThreshold = minNotional
}

// executeLocked submits the market order and, on success, posts the
// EXCHANGE_CONVERSION (and, if non-zero, EXCHANGE_FEES) ledger entries and
// resets the pending row, carrying forward any unfilled remainder.
func (uc *RebalanceUseCase) executeLocked(ctx context.Context, tx Transaction, pending *domain.PendingRebalance) error {
	pair := pending.BaseAsset + pending.QuoteAsset

	var fill *ExchangeFill
	var err error
	switch pending.Direction {
	case domain.DirectionSellBaseForQuote:
		fill, err = uc.exchange.MarketSell(ctx, pair, pending.PendingQty, uc.idGen.Generate())
	case domain.DirectionBuyBaseWithQuote:
		fill, err = uc.exchange.MarketBuy(ctx, pair, pending.PendingQuoteValue, uc.idGen.Generate())
	default:
		return fmt.Errorf("rebalance: unknown direction %s", pending.Direction)
	}
	if err != nil {
		return err
	}

	groupIDs := append([]string(nil), pending.TransactionIDs...)
	resultGroupID := uc.idGen.Generate()

	pending.ResetAfterExecution(fill.FilledQty, fill.QuoteReceived)

	if err := uc.repo.SaveIfUnchanged(ctx, tx, pending); err != nil {
		return err
	}

	result := &domain.RebalanceResult{
		ID:                 uc.idGen.Generate(),
		PendingRebalanceID: pending.ID,
		GroupIDs:           groupIDs,
		FilledQty:          fill.FilledQty,
		QuoteReceived:      fill.QuoteReceived,
		AvgPrice:           fill.AvgPrice,
		Fee:                fill.Fee,
		ExecutedAt:         time.Now().UTC(),
		Success:            true,
	}
	if err := uc.repo.RecordResult(ctx, tx, result); err != nil {
		return err
	}

	if uc.outboxRepo != nil {
		_ = uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   pending.ID,
			AggregateType: domain.AggregateTypePendingRebalance,
			EventType:     domain.EventTypeRebalanceExecuted,
			Notify:        domain.NotifyByDefault(domain.EventTypeRebalanceExecuted),
			Payload: map[string]any{
				"base_asset":     pending.BaseAsset,
				"quote_asset":    pending.QuoteAsset,
				"filled_qty":     fill.FilledQty.String(),
				"quote_received": fill.QuoteReceived.String(),
			},
			CreatedAt: time.Now().UTC(),
		})
	}

	base := domain.AccountTuple{Type: domain.AccountAsset, Name: "Exchange Inventory", Sub: pending.Exchange}
	quote := domain.AccountTuple{Type: domain.AccountAsset, Name: "Exchange Settlement", Sub: pending.Exchange}

	entries := []*domain.LedgerEntry{{
		GroupID:     resultGroupID,
		LedgerType:  domain.LedgerExcConv,
		Description: fmt.Sprintf("exchange conversion %s->%s on %s", pending.BaseAsset, pending.QuoteAsset, pending.Exchange),
		Debit:       quote,
		Credit:      base,
		Amount:      fill.FilledQty.Shift(3).IntPart(),
		Unit:        domain.UnitHIVE,
	}}

	if fill.Fee.IsPositive() {
		entries = append(entries, &domain.LedgerEntry{
			GroupID:     resultGroupID,
			LedgerType:  domain.LedgerExcFee,
			Description: "exchange trade fee",
			Debit:       domain.AccountTuple{Type: domain.AccountExpense, Name: "Exchange Fees", Sub: pending.Exchange},
			Credit:      quote,
			Amount:      fill.Fee.Shift(3).IntPart(),
			Unit:        domain.UnitHIVE,
		})
	}

	return uc.ledgerUC.PostAll(ctx, tx, entries)
}
