package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v4vapp/bridge/internal/domain"
)

// ErrorCodeRepository implements usecase.ErrorCodeRepository, backing the
// recurring-error-suppression dedup table (spec §7).
type ErrorCodeRepository struct {
	pool *pgxpool.Pool
}

// NewErrorCodeRepository creates a new ErrorCodeRepository.
func NewErrorCodeRepository(pool *pgxpool.Pool) *ErrorCodeRepository {
	return &ErrorCodeRepository{pool: pool}
}

// Get loads the error-code row for (code, machineID), returning
// domain.ErrErrorCodeNotFound if it has never been observed.
func (r *ErrorCodeRepository) Get(ctx context.Context, code, machineID string) (*domain.ErrorCode, error) {
	var ec domain.ErrorCode
	err := r.pool.QueryRow(ctx, `
		SELECT code, message, start_time, last_log_time, re_alert_interval_ns, active, cleared_at, machine_id
		FROM error_codes WHERE code = $1 AND machine_id = $2`, code, machineID,
	).Scan(&ec.Code, &ec.Message, &ec.StartTime, &ec.LastLogTime, &ec.ReAlertInterval, &ec.Active, &ec.ClearedAt, &ec.MachineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrErrorCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ec, nil
}

// Upsert writes the current state of an error code, keyed on (code, machine_id).
func (r *ErrorCodeRepository) Upsert(ctx context.Context, ec *domain.ErrorCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO error_codes (code, message, start_time, last_log_time, re_alert_interval_ns, active, cleared_at, machine_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code, machine_id) DO UPDATE SET
			message = EXCLUDED.message,
			last_log_time = EXCLUDED.last_log_time,
			re_alert_interval_ns = EXCLUDED.re_alert_interval_ns,
			active = EXCLUDED.active,
			cleared_at = EXCLUDED.cleared_at`,
		ec.Code, ec.Message, ec.StartTime, ec.LastLogTime, ec.ReAlertInterval, ec.Active, ec.ClearedAt, ec.MachineID,
	)
	return err
}
