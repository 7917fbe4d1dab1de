package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v4vapp/bridge/internal/domain"
)

const pgErrUniqueViolation = "23505"

// TrackedOpRepository implements usecase.TrackedOpRepository (C1 journal).
type TrackedOpRepository struct {
	pool *pgxpool.Pool
}

// NewTrackedOpRepository creates a new TrackedOpRepository.
func NewTrackedOpRepository(pool *pgxpool.Pool) *TrackedOpRepository {
	return &TrackedOpRepository{pool: pool}
}

// Create inserts a freshly ingested TrackedOp. group_id is unique across
// the journal; a duplicate insert surfaces the underlying unique-violation
// so the watcher can treat it as an idempotent no-op.
func (r *TrackedOpRepository) Create(ctx context.Context, op *domain.TrackedOp) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tracked_ops (
			group_id, short_id, source_kind, source_timestamp, ingested_timestamp,
			state, payload, parent_group_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		op.GroupID, op.ShortID, op.SourceKind, op.SourceTimestamp, op.IngestedTimestamp,
		op.State, op.Payload, op.ParentGroupID,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return domain.ErrDuplicateTrackedOp
	}
	return err
}

// GetByGroupID loads one TrackedOp by its group id.
func (r *TrackedOpRepository) GetByGroupID(ctx context.Context, groupID string) (*domain.TrackedOp, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT group_id, short_id, source_kind, source_timestamp, ingested_timestamp,
		       state, payload, parent_group_id, process_time_ms, last_error
		FROM tracked_ops WHERE group_id = $1`, groupID)
	return scanTrackedOp(row)
}

// ListByState lists TrackedOps in a given state, oldest source_timestamp first.
func (r *TrackedOpRepository) ListByState(ctx context.Context, state domain.TrackedOpState, limit int) ([]*domain.TrackedOp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT group_id, short_id, source_kind, source_timestamp, ingested_timestamp,
		       state, payload, parent_group_id, process_time_ms, last_error
		FROM tracked_ops WHERE state = $1 ORDER BY source_timestamp ASC LIMIT $2`, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := make([]*domain.TrackedOp, 0)
	for rows.Next() {
		op, err := scanTrackedOp(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// UpdateState persists a (state, process_time, last_error) transition.
// Callers enforce the allowed-transitions graph via domain.TrackedOp
// before calling this; the repository is a dumb writer.
func (r *TrackedOpRepository) UpdateState(ctx context.Context, op *domain.TrackedOp) error {
	var processTimeMs *int64
	if op.ProcessTime != nil {
		ms := op.ProcessTime.Milliseconds()
		processTimeMs = &ms
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE tracked_ops SET state = $2, process_time_ms = $3, last_error = $4
		WHERE group_id = $1`,
		op.GroupID, op.State, processTimeMs, op.LastError,
	)
	return err
}

// LastPersistedHeight returns the last block height a named watcher
// recorded as fully processed, for resume-after-restart (spec §4.2).
func (r *TrackedOpRepository) LastPersistedHeight(ctx context.Context, watcher string) (int64, error) {
	var height int64
	err := r.pool.QueryRow(ctx, `SELECT height FROM watcher_checkpoints WHERE watcher = $1`, watcher).Scan(&height)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return height, err
}

// SavePersistedHeight upserts the watcher's resume checkpoint.
func (r *TrackedOpRepository) SavePersistedHeight(ctx context.Context, watcher string, height int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO watcher_checkpoints (watcher, height, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (watcher) DO UPDATE SET height = EXCLUDED.height, updated_at = EXCLUDED.updated_at`,
		watcher, height, time.Now().UTC(),
	)
	return err
}

// InProgressMsats sums the msats already in-flight toward a Liability/User
// Balance account: settled LN invoices not yet routed to a credit entry
// (F2) add their full amount, and HiveCustomMessage transfers (F3) add or
// subtract depending on whether the account is the sender or recipient.
// Only non-terminal TrackedOps (Ingested, Routed) count; a Processed,
// Failed, or Skipped op's effect is already reflected in ledger_entries.
func (r *TrackedOpRepository) InProgressMsats(ctx context.Context, account domain.AccountTuple) (int64, error) {
	if account.Type != domain.AccountLiability || account.Name != "User Balance" {
		return 0, nil
	}

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE
				WHEN source_kind = $2 THEN (payload->>'amount_msat')::BIGINT
				WHEN source_kind = $3 AND payload->>'to' = $1 THEN (payload->>'amount_msats')::BIGINT
				WHEN source_kind = $3 AND payload->>'from' = $1 THEN -(payload->>'amount_msats')::BIGINT
				ELSE 0
			END), 0)
		FROM tracked_ops
		WHERE state IN ($4, $5)
		  AND ((source_kind = $2 AND payload->>'beneficiary' = $1)
		    OR (source_kind = $3 AND (payload->>'to' = $1 OR payload->>'from' = $1)))`,
		account.Sub, domain.SourceLNInvoice, domain.SourceHiveCustomMessage,
		domain.StateIngested, domain.StateRouted,
	).Scan(&total)
	return total, err
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackedOp(row rowScanner) (*domain.TrackedOp, error) {
	var op domain.TrackedOp
	var processMs *int64
	err := row.Scan(
		&op.GroupID, &op.ShortID, &op.SourceKind, &op.SourceTimestamp, &op.IngestedTimestamp,
		&op.State, &op.Payload, &op.ParentGroupID, &processMs, &op.LastError,
	)
	if err != nil {
		return nil, err
	}
	if processMs != nil {
		d := time.Duration(*processMs) * time.Millisecond
		op.ProcessTime = &d
	}
	return &op, nil
}
