package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v4vapp/bridge/internal/domain"
)

// CounterpartyRepository implements usecase.CounterpartyRepository, the
// blacklist/whitelist store replacing the teacher's user table (spec §7).
type CounterpartyRepository struct {
	pool *pgxpool.Pool
}

// NewCounterpartyRepository creates a new CounterpartyRepository.
func NewCounterpartyRepository(pool *pgxpool.Pool) *CounterpartyRepository {
	return &CounterpartyRepository{pool: pool}
}

// Get loads a counterparty record by name, returning
// domain.ErrCounterpartyNotFound when unknown (callers treat unknown as
// allowed).
func (r *CounterpartyRepository) Get(ctx context.Context, name string) (*domain.Counterparty, error) {
	var c domain.Counterparty
	err := r.pool.QueryRow(ctx, `
		SELECT name, status, note, updated_at FROM counterparties WHERE name = $1`, name,
	).Scan(&c.Name, &c.Status, &c.Note, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCounterpartyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert writes the current status of a counterparty.
func (r *CounterpartyRepository) Upsert(ctx context.Context, c *domain.Counterparty) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO counterparties (name, status, note, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			status = EXCLUDED.status, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at`,
		c.Name, c.Status, c.Note, c.UpdatedAt,
	)
	return err
}
