package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyRepository implements usecase.PolicyRepository, loading the raw
// operator policy blob posted to Hive account metadata by an off-chain
// admin tool. The bridge only ever reads this table; it is written by an
// external process (spec §4.4 Non-goals: no policy-editing UI).
type PolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository creates a new PolicyRepository.
func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

// LoadRawPolicy fetches the most recently ingested policy blob, loosely
// typed since its shape is operator-controlled and parsed defensively by
// domain.ParsePolicy.
func (r *PolicyRepository) LoadRawPolicy(ctx context.Context) (map[string]any, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT raw_json FROM policy_snapshots ORDER BY received_at DESC LIMIT 1`,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	var blob map[string]any
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, err
	}
	return blob, nil
}
