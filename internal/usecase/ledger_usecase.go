package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// ErrInconsistentLedger is returned when debits do not equal credits for
// some unit (spec §8 property 1).
var ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")

// LedgerUseCase implements the three operations of spec §4.6: post, balance,
// list_accounts, plus the consistency check behind the §8 balance invariant.
// Grounded on iho-goledger's LedgerUseCase.CheckConsistency and
// EntryUseCase.GetHistoricalBalance, merged into one usecase because the
// bridge ledger has no separate "entry" concept distinct from LedgerEntry.
type LedgerUseCase struct {
	ledgerRepo  LedgerRepository
	cache       Cache
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	broadcaster EntryBroadcaster
	trackedOps  TrackedOpRepository
}

// EntryBroadcaster fans out a posted ledger entry to live observers (the
// admin websocket feed). Best-effort: never blocks or errors the posting
// transaction.
type EntryBroadcaster interface {
	Broadcast(entry *domain.LedgerEntry)
}

// SetBroadcaster wires a live-feed broadcaster in after construction,
// keeping NewLedgerUseCase's signature stable for callers that don't need one.
func (uc *LedgerUseCase) SetBroadcaster(b EntryBroadcaster) {
	uc.broadcaster = b
}

// SetTrackedOps wires the C1 journal in after construction, so Balance can
// compute in_progress_msats (spec §3). A nil trackedOps makes every
// balance's in_progress_msats read as zero rather than erroring.
func (uc *LedgerUseCase) SetTrackedOps(repo TrackedOpRepository) {
	uc.trackedOps = repo
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository, cache Cache, outboxRepo OutboxRepository, idGen IDGenerator) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		cache:      cache,
		outboxRepo: outboxRepo,
		idGen:      idGen,
	}
}

// Post writes a single balanced entry atomically, within the caller's
// transaction. Duplicate (group_id, ledger_type) pairs are a no-op
// returning domain.ErrDuplicateEntry (spec §4.6).
func (uc *LedgerUseCase) Post(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	exists, err := uc.ledgerRepo.ExistsForGroupAndType(ctx, entry.GroupID, entry.LedgerType)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicateEntry
	}

	if entry.ID == "" {
		entry.ID = uc.idGen.Generate()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := uc.ledgerRepo.Post(ctx, tx, entry); err != nil {
		return err
	}

	if uc.outboxRepo != nil {
		_ = uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   entry.GroupID,
			AggregateType: domain.AggregateTypeLedgerEntry,
			EventType:     domain.EventTypeLedgerEntryPosted,
			Notify:        domain.NotifyByDefault(domain.EventTypeLedgerEntryPosted),
			Payload: map[string]any{
				"group_id":    entry.GroupID,
				"ledger_type": string(entry.LedgerType),
				"amount":      entry.Amount,
				"unit":        string(entry.Unit),
			},
			CreatedAt: time.Now().UTC(),
		})
	}

	// Cache invalidation: bump the generation counter so every outstanding
	// cached key becomes unreachable (spec §4.7). Cache failures here are
	// warnings, never errors, per the same section.
	if uc.cache != nil {
		_, _ = uc.cache.IncrGeneration(ctx)
	}

	// Broadcast before the caller's tx.Commit: an observer may see an entry
	// that a later rollback undoes, an accepted tradeoff for a best-effort
	// live feed (spec §3 supplement).
	if uc.broadcaster != nil {
		uc.broadcaster.Broadcast(entry)
	}

	return nil
}

// PostAll posts a set of entries within one transaction, used by the
// conversion engine for multi-entry flows (F1/F2) and by the rebalancer.
func (uc *LedgerUseCase) PostAll(ctx context.Context, tx Transaction, entries []*domain.LedgerEntry) error {
	for _, e := range entries {
		if err := uc.Post(ctx, tx, e); err != nil {
			return fmt.Errorf("post %s/%s: %w", e.GroupID, e.LedgerType, err)
		}
	}
	return nil
}

// Balance returns the per-unit totals for an account, honoring the cache
// (C7) in front of the ledger. A nil asOf means "live"; a non-nil asOf is a
// historical point query using the longer TTL (spec §4.7).
func (uc *LedgerUseCase) Balance(ctx context.Context, account domain.AccountTuple, asOf *time.Time) (*domain.LedgerAccountDetails, error) {
	details, err := uc.balanceCached(ctx, account, asOf)
	if err != nil {
		return nil, err
	}

	// in_progress_msats is never part of the cached snapshot: it must be
	// recomputed freshly on every call, cache hit or miss (spec §4.7).
	inProgress, err := uc.inProgressMsats(ctx, account)
	if err != nil {
		return nil, err
	}
	details.InProgressMsats = inProgress

	return details, nil
}

// balanceCached returns the PerUnitTotals/PerUnitHistory snapshot, honoring
// the cache. The returned InProgressMsats, if any decoded from a cached
// entry, is always overwritten by the caller.
func (uc *LedgerUseCase) balanceCached(ctx context.Context, account domain.AccountTuple, asOf *time.Time) (*domain.LedgerAccountDetails, error) {
	if uc.cache == nil {
		return uc.ledgerRepo.Balance(ctx, account, asOf)
	}

	gen, genErr := uc.cache.Generation(ctx)
	if genErr != nil {
		// Cache store unreachable: fall back to direct ledger query (spec §4.7).
		return uc.ledgerRepo.Balance(ctx, account, asOf)
	}

	key := balanceCacheKey(gen, account, asOf)
	if cached, err := uc.cache.Get(ctx, key); err == nil && cached != nil {
		if details, decodeErr := decodeCachedBalance(cached); decodeErr == nil {
			return details, nil
		}
	}

	details, err := uc.ledgerRepo.Balance(ctx, account, asOf)
	if err != nil {
		return nil, err
	}

	ttl := BalanceCacheTTLLive
	if asOf != nil {
		ttl = BalanceCacheTTLHistorical
	}
	if encoded, encErr := encodeCachedBalance(details); encErr == nil {
		_ = uc.cache.Set(ctx, key, encoded, ttl)
	}

	return details, nil
}

// inProgressMsats queries the C1 journal directly; it is intentionally
// never cached (spec §4.7). A nil trackedOps repository (not wired) reads
// as zero rather than failing the whole balance call.
func (uc *LedgerUseCase) inProgressMsats(ctx context.Context, account domain.AccountTuple) (int64, error) {
	if uc.trackedOps == nil {
		return 0, nil
	}
	return uc.trackedOps.InProgressMsats(ctx, account)
}

// ListAccounts enumerates known account tuples in use.
func (uc *LedgerUseCase) ListAccounts(ctx context.Context) ([]domain.AccountTuple, error) {
	return uc.ledgerRepo.ListAccounts(ctx)
}

// CheckConsistency verifies the balance-sheet invariant (spec §8 property 1):
// for every unit, total debits equal total credits.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) error {
	totals, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	for unit, t := range totals {
		if t.Debits != t.Credits {
			return fmt.Errorf("%w: unit=%s debits=%d credits=%d", ErrInconsistentLedger, unit, t.Debits, t.Credits)
		}
	}

	return nil
}
