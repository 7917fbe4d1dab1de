package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/v4vapp/bridge/internal/domain"
)

// IngestUseCase is the C1 ingestion boundary: watchers hand it a decoded
// event and it journals a TrackedOp, deduplicating on (group_id,
// source_kind) via the repository's unique index.
type IngestUseCase struct {
	repo   TrackedOpRepository
	idGen  IDGenerator
	logger zerolog.Logger
}

// NewIngestUseCase creates a new IngestUseCase.
func NewIngestUseCase(repo TrackedOpRepository, idGen IDGenerator, logger zerolog.Logger) *IngestUseCase {
	return &IngestUseCase{repo: repo, idGen: idGen, logger: logger}
}

// Ingest journals a new TrackedOp. A duplicate (group_id, source_kind) is
// swallowed as a successful replay, not surfaced to the caller, so a
// watcher can safely re-scan a block range after a restart.
func (uc *IngestUseCase) Ingest(ctx context.Context, groupID string, kind domain.SourceKind, sourceTS time.Time, payload []byte, parentGroupID *string) error {
	op := domain.NewTrackedOp(groupID, uc.idGen.Generate(), kind, sourceTS, payload, parentGroupID)

	err := uc.repo.Create(ctx, op)
	if errors.Is(err, domain.ErrDuplicateTrackedOp) {
		uc.logger.Debug().Str("group_id", groupID).Str("kind", string(kind)).Msg("ingest: duplicate, skipping")
		return nil
	}
	return err
}

// ResumeHeight returns the last height a named watcher persisted, for
// catch-up-mode resume after a restart (spec §4.2).
func (uc *IngestUseCase) ResumeHeight(ctx context.Context, watcher string) (int64, error) {
	return uc.repo.LastPersistedHeight(ctx, watcher)
}

// SaveHeight checkpoints a watcher's progress.
func (uc *IngestUseCase) SaveHeight(ctx context.Context, watcher string, height int64) error {
	return uc.repo.SavePersistedHeight(ctx, watcher, height)
}

// ListByState returns the most recent tracked ops in a given state, for the
// admin read endpoint (spec §3 supplement). A zero or negative limit
// defaults to 50.
func (uc *IngestUseCase) ListByState(ctx context.Context, state domain.TrackedOpState, limit int) ([]*domain.TrackedOp, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.repo.ListByState(ctx, state, limit)
}
