package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v4vapp/bridge/internal/domain"
)

// RatesRepository implements usecase.RatesRepository, the cross-currency
// rate time series that freezes a domain.ConvSnapshot onto every ledger
// entry at post time (spec §3).
type RatesRepository struct {
	pool *pgxpool.Pool
}

// NewRatesRepository creates a new RatesRepository.
func NewRatesRepository(pool *pgxpool.Pool) *RatesRepository {
	return &RatesRepository{pool: pool}
}

// Latest returns the most recently recorded conversion snapshot.
func (r *RatesRepository) Latest(ctx context.Context) (domain.ConvSnapshot, error) {
	var conv domain.ConvSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT hive, hbd, msats, usd FROM rates ORDER BY recorded_at DESC LIMIT 1`,
	).Scan(&conv.Hive, &conv.HBD, &conv.Msats, &conv.USD)
	if err == pgx.ErrNoRows {
		return domain.ConvSnapshot{}, nil
	}
	return conv, err
}

// Record appends a new rate sample.
func (r *RatesRepository) Record(ctx context.Context, at time.Time, conv domain.ConvSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rates (recorded_at, hive, hbd, msats, usd) VALUES ($1, $2, $3, $4, $5)`,
		at, conv.Hive, conv.HBD, conv.Msats, conv.USD,
	)
	return err
}
