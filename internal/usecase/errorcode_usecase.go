package usecase

import (
	"context"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// ErrorCodeUseCase deduplicates recurring error events so a flapping
// dependency does not flood the notification dispatcher (spec §7, grounded
// on the Python original's error_code_manager).
type ErrorCodeUseCase struct {
	repo      ErrorCodeRepository
	machineID string
}

// NewErrorCodeUseCase creates a new ErrorCodeUseCase.
func NewErrorCodeUseCase(repo ErrorCodeRepository, machineID string) *ErrorCodeUseCase {
	return &ErrorCodeUseCase{repo: repo, machineID: machineID}
}

// Observe records an error occurrence and reports whether it should be
// suppressed (a recent, still-active occurrence of the same code) or
// surfaced (first occurrence, or a recurrence after the re-alert interval).
func (uc *ErrorCodeUseCase) Observe(ctx context.Context, code, message string) (suppress bool, err error) {
	now := time.Now().UTC()

	ec, err := uc.repo.Get(ctx, code, uc.machineID)
	if err != nil {
		if err != domain.ErrErrorCodeNotFound {
			return false, err
		}
		ec = nil
	}

	if ec == nil {
		ec = &domain.ErrorCode{
			Code:            code,
			Message:         message,
			StartTime:       now,
			LastLogTime:     now,
			ReAlertInterval: domain.DefaultReAlertInterval,
			Active:          true,
			MachineID:       uc.machineID,
		}
		return false, uc.repo.Upsert(ctx, ec)
	}

	if ec.ShouldSuppress(now) {
		return true, nil
	}

	ec.Recur(now)
	ec.Message = message
	return false, uc.repo.Upsert(ctx, ec)
}

// Clear marks a code resolved, so its next occurrence is treated as new.
func (uc *ErrorCodeUseCase) Clear(ctx context.Context, code string) error {
	ec, err := uc.repo.Get(ctx, code, uc.machineID)
	if err != nil {
		return err
	}
	ec.Clear(time.Now().UTC())
	return uc.repo.Upsert(ctx, ec)
}
