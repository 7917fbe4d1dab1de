package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository. Balances are never
// stored columns; every Balance call sums the journal (spec §3: "a balance
// is a query, not a column").
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Post inserts one balanced entry within the caller's transaction. The
// unique index on (group_id, ledger_type) is the authoritative idempotency
// guard; ExistsForGroupAndType is an optimistic pre-check only.
func (r *LedgerRepository) Post(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()
	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (
			id, group_id, ledger_type, ts, description,
			debit_type, debit_name, debit_sub,
			credit_type, credit_name, credit_sub,
			amount, unit, conv_hive, conv_hbd, conv_msats, conv_usd, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		entry.ID, entry.GroupID, entry.LedgerType, entry.Timestamp, entry.Description,
		entry.Debit.Type, entry.Debit.Name, entry.Debit.Sub,
		entry.Credit.Type, entry.Credit.Name, entry.Credit.Sub,
		entry.Amount, entry.Unit,
		entry.Conv.Hive, entry.Conv.HBD, entry.Conv.Msats, entry.Conv.USD, entry.Notes,
	)
	return err
}

// ExistsForGroupAndType reports whether an entry for (group_id, ledger_type)
// has already been posted.
func (r *LedgerRepository) ExistsForGroupAndType(ctx context.Context, groupID string, ledgerType domain.LedgerType) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE group_id = $1 AND ledger_type = $2)`,
		groupID, ledgerType,
	).Scan(&exists)
	return exists, err
}

// Balance sums the journal for one account per unit as debit - credit,
// whatever the account's type, optionally as-of a point in time for
// historical queries (spec §4.6).
func (r *LedgerRepository) Balance(ctx context.Context, account domain.AccountTuple, asOf *time.Time) (*domain.LedgerAccountDetails, error) {
	cutoff := time.Now().UTC()
	if asOf != nil {
		cutoff = *asOf
	}

	rows, err := r.pool.Query(ctx, `
		SELECT unit,
		       COALESCE(SUM(CASE WHEN debit_type = $1 AND debit_name = $2 AND debit_sub = $3 THEN amount ELSE 0 END), 0)
		       - COALESCE(SUM(CASE WHEN credit_type = $1 AND credit_name = $2 AND credit_sub = $3 THEN amount ELSE 0 END), 0) AS net
		FROM ledger_entries
		WHERE ts <= $4
		  AND ((debit_type = $1 AND debit_name = $2 AND debit_sub = $3)
		    OR (credit_type = $1 AND credit_name = $2 AND credit_sub = $3))
		GROUP BY unit`,
		account.Type, account.Name, account.Sub, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := &domain.LedgerAccountDetails{
		Account:       account,
		PerUnitTotals: make(map[domain.Unit]int64),
	}
	for rows.Next() {
		var unit domain.Unit
		var net int64
		if err := rows.Scan(&unit, &net); err != nil {
			return nil, err
		}
		details.PerUnitTotals[unit] = net
	}
	return details, rows.Err()
}

// ListAccounts enumerates every distinct account tuple that has appeared as
// either a debit or credit side of an entry.
func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]domain.AccountTuple, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT account_type, account_name, account_sub FROM (
			SELECT debit_type AS account_type, debit_name AS account_name, debit_sub AS account_sub FROM ledger_entries
			UNION
			SELECT credit_type, credit_name, credit_sub FROM ledger_entries
		) accounts
		ORDER BY account_type, account_name, account_sub`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.AccountTuple, 0)
	for rows.Next() {
		var a domain.AccountTuple
		if err := rows.Scan(&a.Type, &a.Name, &a.Sub); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CheckConsistency sums debits and credits per unit across the whole
// journal; a balanced ledger has Debits == Credits for every unit (spec §8
// property 1).
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (map[domain.Unit]usecase.AccountTotals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT unit,
		       SUM(CASE WHEN debit_type <> '' THEN amount ELSE 0 END) AS debits,
		       SUM(CASE WHEN credit_type <> '' THEN amount ELSE 0 END) AS credits
		FROM ledger_entries GROUP BY unit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[domain.Unit]usecase.AccountTotals)
	for rows.Next() {
		var unit domain.Unit
		var debits, credits int64
		if err := rows.Scan(&unit, &debits, &credits); err != nil {
			return nil, err
		}
		totals[unit] = usecase.AccountTotals{Debits: debits, Credits: credits}
	}
	return totals, rows.Err()
}

var _ = pgx.ErrNoRows
