package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

type fakeTransaction struct{}

func (fakeTransaction) Commit(ctx context.Context) error   { return nil }
func (fakeTransaction) Rollback(ctx context.Context) error { return nil }

type fakeLedgerRepository struct {
	posted        []*domain.LedgerEntry
	existing      map[string]bool
	balanceErr    error
	balanceResult *domain.LedgerAccountDetails
	totals        map[domain.Unit]AccountTotals
	totalsErr     error
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{existing: make(map[string]bool)}
}

func (f *fakeLedgerRepository) key(groupID string, lt domain.LedgerType) string {
	return groupID + "|" + string(lt)
}

func (f *fakeLedgerRepository) Post(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error {
	f.posted = append(f.posted, entry)
	f.existing[f.key(entry.GroupID, entry.LedgerType)] = true
	return nil
}

func (f *fakeLedgerRepository) ExistsForGroupAndType(ctx context.Context, groupID string, ledgerType domain.LedgerType) (bool, error) {
	return f.existing[f.key(groupID, ledgerType)], nil
}

func (f *fakeLedgerRepository) Balance(ctx context.Context, account domain.AccountTuple, asOf *time.Time) (*domain.LedgerAccountDetails, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balanceResult, nil
}

func (f *fakeLedgerRepository) ListAccounts(ctx context.Context) ([]domain.AccountTuple, error) {
	return nil, nil
}

func (f *fakeLedgerRepository) CheckConsistency(ctx context.Context) (map[domain.Unit]AccountTotals, error) {
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
	return f.totals, nil
}

type fakeOutboxRepository struct {
	events []*domain.OutboxEvent
}

func (f *fakeOutboxRepository) Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}
func (f *fakeOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return nil
}
func (f *fakeOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

type fakeIDGenerator struct {
	n int
}

func (f *fakeIDGenerator) Generate() string {
	f.n++
	return "id-" + time.Now().Format("150405") + "-gen"
}

type fakeBroadcaster struct {
	entries []*domain.LedgerEntry
}

func (f *fakeBroadcaster) Broadcast(entry *domain.LedgerEntry) {
	f.entries = append(f.entries, entry)
}

func testLedgerEntry(groupID string) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		GroupID:    groupID,
		LedgerType: domain.LedgerDepositHive,
		Debit:      domain.AccountTuple{Type: domain.AccountAsset, Name: "hive_hot_wallet"},
		Credit:     domain.AccountTuple{Type: domain.AccountLiability, Name: "user", Sub: "alice"},
		Amount:     1000,
		Unit:       domain.UnitHIVE,
	}
}

func TestLedgerUseCasePost(t *testing.T) {
	t.Parallel()

	t.Run("posts a valid entry and assigns an id", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		idGen := &fakeIDGenerator{}
		uc := NewLedgerUseCase(repo, nil, nil, idGen)

		entry := testLedgerEntry("grp-1")
		if err := uc.Post(context.Background(), fakeTransaction{}, entry); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if entry.ID == "" {
			t.Fatalf("expected ID to be assigned")
		}
		if len(repo.posted) != 1 {
			t.Fatalf("expected 1 posted entry, got %d", len(repo.posted))
		}
	})

	t.Run("duplicate group_id/ledger_type is rejected", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		idGen := &fakeIDGenerator{}
		uc := NewLedgerUseCase(repo, nil, nil, idGen)
		ctx := context.Background()

		if err := uc.Post(ctx, fakeTransaction{}, testLedgerEntry("grp-1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := uc.Post(ctx, fakeTransaction{}, testLedgerEntry("grp-1"))
		if !errors.Is(err, domain.ErrDuplicateEntry) {
			t.Fatalf("expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("invalid entry is rejected before touching the repo", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		entry := testLedgerEntry("grp-1")
		entry.Amount = 0
		if err := uc.Post(context.Background(), fakeTransaction{}, entry); !errors.Is(err, domain.ErrNonPositiveAmount) {
			t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
		}
		if len(repo.posted) != 0 {
			t.Fatalf("expected nothing posted for an invalid entry")
		}
	})

	t.Run("creates an outbox event when an outbox repo is wired", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		outbox := &fakeOutboxRepository{}
		uc := NewLedgerUseCase(repo, nil, outbox, &fakeIDGenerator{})

		if err := uc.Post(context.Background(), fakeTransaction{}, testLedgerEntry("grp-1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(outbox.events) != 1 {
			t.Fatalf("expected 1 outbox event, got %d", len(outbox.events))
		}
		if outbox.events[0].AggregateType != domain.AggregateTypeLedgerEntry {
			t.Fatalf("expected ledger entry aggregate type, got %v", outbox.events[0].AggregateType)
		}
	})

	t.Run("broadcasts to a wired broadcaster", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})
		bc := &fakeBroadcaster{}
		uc.SetBroadcaster(bc)

		entry := testLedgerEntry("grp-1")
		if err := uc.Post(context.Background(), fakeTransaction{}, entry); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(bc.entries) != 1 || bc.entries[0] != entry {
			t.Fatalf("expected entry broadcast, got %+v", bc.entries)
		}
	})
}

func TestLedgerUseCasePostAll(t *testing.T) {
	t.Parallel()

	t.Run("all entries succeed", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		entries := []*domain.LedgerEntry{testLedgerEntry("grp-1"), testLedgerEntry("grp-2")}
		if err := uc.PostAll(context.Background(), fakeTransaction{}, entries); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(repo.posted) != 2 {
			t.Fatalf("expected 2 posted entries, got %d", len(repo.posted))
		}
	})

	t.Run("a failing entry stops the batch and wraps the error", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		bad := testLedgerEntry("grp-1")
		bad.Amount = 0
		entries := []*domain.LedgerEntry{testLedgerEntry("grp-0"), bad}

		err := uc.PostAll(context.Background(), fakeTransaction{}, entries)
		if err == nil {
			t.Fatalf("expected an error")
		}
		if !errors.Is(err, domain.ErrNonPositiveAmount) {
			t.Fatalf("expected wrapped ErrNonPositiveAmount, got %v", err)
		}
		if len(repo.posted) != 1 {
			t.Fatalf("expected only the first entry posted, got %d", len(repo.posted))
		}
	})
}

func TestLedgerUseCaseBalance(t *testing.T) {
	t.Parallel()

	account := domain.AccountTuple{Type: domain.AccountLiability, Name: "user", Sub: "alice"}

	t.Run("no cache falls through directly to the repo", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.balanceResult = &domain.LedgerAccountDetails{Account: account}
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		got, err := uc.Balance(context.Background(), account, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Account != account {
			t.Fatalf("expected account match, got %+v", got)
		}
	})

	t.Run("repo error propagates when there is no cache", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.balanceErr = errors.New("db down")
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		if _, err := uc.Balance(context.Background(), account, nil); err == nil {
			t.Fatalf("expected error")
		}
	})
}

type fakeBalanceCache struct {
	store map[string][]byte
	gen   int64
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{store: make(map[string][]byte), gen: 1}
}

func (f *fakeBalanceCache) Get(ctx context.Context, key string) ([]byte, error) {
	return f.store[key], nil
}

func (f *fakeBalanceCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.store[key] = value
	return nil
}

func (f *fakeBalanceCache) Delete(ctx context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func (f *fakeBalanceCache) IncrGeneration(ctx context.Context) (int64, error) {
	f.gen++
	return f.gen, nil
}

func (f *fakeBalanceCache) Generation(ctx context.Context) (int64, error) {
	return f.gen, nil
}

type fakeInProgressRepo struct {
	TrackedOpRepository
	calls  int
	values []int64
}

func (f *fakeInProgressRepo) InProgressMsats(ctx context.Context, account domain.AccountTuple) (int64, error) {
	v := f.values[f.calls]
	if f.calls < len(f.values)-1 {
		f.calls++
	}
	return v, nil
}

func TestLedgerUseCaseBalanceRecomputesInProgressOnCacheHit(t *testing.T) {
	t.Parallel()

	account := domain.AccountTuple{Type: domain.AccountLiability, Name: "User Balance", Sub: "alice"}
	repo := newFakeLedgerRepository()
	repo.balanceResult = &domain.LedgerAccountDetails{Account: account, PerUnitTotals: map[domain.Unit]int64{domain.UnitMSATS: 100}}
	cache := newFakeBalanceCache()
	inProgress := &fakeInProgressRepo{values: []int64{5000, 7000}}

	uc := NewLedgerUseCase(repo, cache, nil, &fakeIDGenerator{})
	uc.SetTrackedOps(inProgress)

	first, err := uc.Balance(context.Background(), account, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.InProgressMsats != 5000 {
		t.Fatalf("expected in_progress_msats 5000 on miss, got %d", first.InProgressMsats)
	}

	second, err := uc.Balance(context.Background(), account, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.InProgressMsats != 7000 {
		t.Fatalf("expected in_progress_msats recomputed to 7000 on cache hit, got %d", second.InProgressMsats)
	}
	if second.PerUnitTotals[domain.UnitMSATS] != 100 {
		t.Fatalf("expected cached per-unit totals to survive the hit, got %+v", second.PerUnitTotals)
	}
}

func TestLedgerUseCaseCheckConsistency(t *testing.T) {
	t.Parallel()

	t.Run("balanced totals pass", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{
			domain.UnitHIVE: {Debits: 1000, Credits: 1000},
		}
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		if err := uc.CheckConsistency(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("unbalanced totals fail with ErrInconsistentLedger", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totals = map[domain.Unit]AccountTotals{
			domain.UnitHIVE: {Debits: 1000, Credits: 900},
		}
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		err := uc.CheckConsistency(context.Background())
		if !errors.Is(err, ErrInconsistentLedger) {
			t.Fatalf("expected ErrInconsistentLedger, got %v", err)
		}
	})

	t.Run("repo error propagates", func(t *testing.T) {
		repo := newFakeLedgerRepository()
		repo.totalsErr = errors.New("db down")
		uc := NewLedgerUseCase(repo, nil, nil, &fakeIDGenerator{})

		if err := uc.CheckConsistency(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}
