package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// RebalanceRepository implements usecase.RebalanceRepository (C8).
type RebalanceRepository struct {
	pool *pgxpool.Pool
}

// NewRebalanceRepository creates a new RebalanceRepository.
func NewRebalanceRepository(pool *pgxpool.Pool) *RebalanceRepository {
	return &RebalanceRepository{pool: pool}
}

// GetOrCreate fetches the pool row for (base, quote, exchange, direction),
// row-locking it for the caller's transaction, inserting a zeroed row on
// first use.
func (r *RebalanceRepository) GetOrCreate(ctx context.Context, tx usecase.Transaction, base, quote, exchange string, direction domain.RebalanceDirection) (*domain.PendingRebalance, error) {
	pgxTx := tx.(*Tx).PgxTx()

	p, err := scanPendingRebalance(pgxTx.QueryRow(ctx, `
		SELECT id, base_asset, quote_asset, exchange, direction,
		       pending_qty, pending_quote_value, min_qty_threshold, min_notional_threshold,
		       transaction_count, transaction_ids, total_executed_qty, execution_count, version, updated_at
		FROM pending_rebalances
		WHERE base_asset = $1 AND quote_asset = $2 AND exchange = $3 AND direction = $4
		FOR UPDATE`, base, quote, exchange, direction))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	p = &domain.PendingRebalance{
		ID:                   uuid.NewString(),
		BaseAsset:            base,
		QuoteAsset:           quote,
		Exchange:             exchange,
		Direction:            direction,
		PendingQty:           decimal.Zero,
		PendingQuoteValue:    decimal.Zero,
		MinQtyThreshold:      decimal.Zero,
		MinNotionalThreshold: decimal.Zero,
		TotalExecutedQty:     decimal.Zero,
		Version:              0,
		UpdatedAt:            time.Now().UTC(),
	}
	_, err = pgxTx.Exec(ctx, `
		INSERT INTO pending_rebalances (
			id, base_asset, quote_asset, exchange, direction,
			pending_qty, pending_quote_value, min_qty_threshold, min_notional_threshold,
			transaction_count, transaction_ids, total_executed_qty, execution_count, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.BaseAsset, p.QuoteAsset, p.Exchange, p.Direction,
		p.PendingQty, p.PendingQuoteValue, p.MinQtyThreshold, p.MinNotionalThreshold,
		p.TransactionCount, p.TransactionIDs, p.TotalExecutedQty, p.ExecutionCount, p.Version, p.UpdatedAt,
	)
	return p, err
}

// SaveIfUnchanged writes the pool row back iff its version still matches
// what was read, the optimistic-concurrency guard for concurrent
// accumulation (spec §4.8).
func (r *RebalanceRepository) SaveIfUnchanged(ctx context.Context, tx usecase.Transaction, p *domain.PendingRebalance) error {
	pgxTx := tx.(*Tx).PgxTx()
	readVersion := p.Version
	nextVersion := readVersion + 1

	tag, err := pgxTx.Exec(ctx, `
		UPDATE pending_rebalances SET
			pending_qty = $3, pending_quote_value = $4,
			min_qty_threshold = $5, min_notional_threshold = $6,
			transaction_count = $7, transaction_ids = $8,
			total_executed_qty = $9, execution_count = $10,
			version = $11, updated_at = $12
		WHERE id = $1 AND version = $2`,
		p.ID, readVersion,
		p.PendingQty, p.PendingQuoteValue,
		p.MinQtyThreshold, p.MinNotionalThreshold,
		p.TransactionCount, p.TransactionIDs,
		p.TotalExecutedQty, p.ExecutionCount,
		nextVersion, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRebalanceVersionConflict
	}
	p.Version = nextVersion
	return nil
}

// RecordResult persists the outcome of an executed rebalance.
func (r *RebalanceRepository) RecordResult(ctx context.Context, tx usecase.Transaction, result *domain.RebalanceResult) error {
	pgxTx := tx.(*Tx).PgxTx()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	_, err := pgxTx.Exec(ctx, `
		INSERT INTO rebalance_results (
			id, pending_rebalance_id, group_ids, filled_qty, quote_received,
			avg_price, fee, executed_at, success, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ID, result.PendingRebalanceID, result.GroupIDs, result.FilledQty, result.QuoteReceived,
		result.AvgPrice, result.Fee, result.ExecutedAt, result.Success, result.Error,
	)
	return err
}

// ListPending returns every pool row for the admin read endpoint (spec §3
// supplement), most recently updated first.
func (r *RebalanceRepository) ListPending(ctx context.Context) ([]*domain.PendingRebalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, base_asset, quote_asset, exchange, direction,
		       pending_qty, pending_quote_value, min_qty_threshold, min_notional_threshold,
		       transaction_count, transaction_ids, total_executed_qty, execution_count, version, updated_at
		FROM pending_rebalances
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PendingRebalance
	for rows.Next() {
		p, err := scanPendingRebalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPendingRebalance(row rowScanner) (*domain.PendingRebalance, error) {
	var p domain.PendingRebalance
	err := row.Scan(
		&p.ID, &p.BaseAsset, &p.QuoteAsset, &p.Exchange, &p.Direction,
		&p.PendingQty, &p.PendingQuoteValue, &p.MinQtyThreshold, &p.MinNotionalThreshold,
		&p.TransactionCount, &p.TransactionIDs, &p.TotalExecutedQty, &p.ExecutionCount, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
