package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/v4vapp/bridge/internal/domain"
)

type fakeTrackedOpRepository struct {
	created  []*domain.TrackedOp
	dup      bool
	heights  map[string]int64
	byState  []*domain.TrackedOp
	lastArgs struct {
		state domain.TrackedOpState
		limit int
	}
}

func newFakeTrackedOpRepository() *fakeTrackedOpRepository {
	return &fakeTrackedOpRepository{heights: make(map[string]int64)}
}

func (f *fakeTrackedOpRepository) Create(ctx context.Context, op *domain.TrackedOp) error {
	if f.dup {
		return domain.ErrDuplicateTrackedOp
	}
	f.created = append(f.created, op)
	return nil
}

func (f *fakeTrackedOpRepository) GetByGroupID(ctx context.Context, groupID string) (*domain.TrackedOp, error) {
	return nil, nil
}

func (f *fakeTrackedOpRepository) ListByState(ctx context.Context, state domain.TrackedOpState, limit int) ([]*domain.TrackedOp, error) {
	f.lastArgs.state = state
	f.lastArgs.limit = limit
	return f.byState, nil
}

func (f *fakeTrackedOpRepository) UpdateState(ctx context.Context, op *domain.TrackedOp) error {
	return nil
}

func (f *fakeTrackedOpRepository) LastPersistedHeight(ctx context.Context, watcher string) (int64, error) {
	return f.heights[watcher], nil
}

func (f *fakeTrackedOpRepository) SavePersistedHeight(ctx context.Context, watcher string, height int64) error {
	f.heights[watcher] = height
	return nil
}

func (f *fakeTrackedOpRepository) InProgressMsats(ctx context.Context, account domain.AccountTuple) (int64, error) {
	return 0, nil
}

func TestIngestUseCaseIngest(t *testing.T) {
	t.Parallel()

	t.Run("journals a new op", func(t *testing.T) {
		repo := newFakeTrackedOpRepository()
		uc := NewIngestUseCase(repo, &fakeIDGenerator{}, zerolog.Nop())

		err := uc.Ingest(context.Background(), "grp-1", domain.SourceHiveTransfer, time.Now(), []byte(`{}`), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(repo.created) != 1 {
			t.Fatalf("expected 1 created op, got %d", len(repo.created))
		}
	})

	t.Run("duplicate is swallowed as success", func(t *testing.T) {
		repo := newFakeTrackedOpRepository()
		repo.dup = true
		uc := NewIngestUseCase(repo, &fakeIDGenerator{}, zerolog.Nop())

		err := uc.Ingest(context.Background(), "grp-1", domain.SourceHiveTransfer, time.Now(), []byte(`{}`), nil)
		if err != nil {
			t.Fatalf("expected duplicate to be swallowed, got %v", err)
		}
	})
}

func TestIngestUseCaseResumeAndSaveHeight(t *testing.T) {
	t.Parallel()

	repo := newFakeTrackedOpRepository()
	uc := NewIngestUseCase(repo, &fakeIDGenerator{}, zerolog.Nop())
	ctx := context.Background()

	if err := uc.SaveHeight(ctx, "hive", 12345); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := uc.ResumeHeight(ctx, "hive")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != 12345 {
		t.Fatalf("expected resumed height 12345, got %d", got)
	}
}

func TestIngestUseCaseListByStateDefaultsLimit(t *testing.T) {
	t.Parallel()

	repo := newFakeTrackedOpRepository()
	uc := NewIngestUseCase(repo, &fakeIDGenerator{}, zerolog.Nop())

	if _, err := uc.ListByState(context.Background(), domain.StateFailed, 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastArgs.limit != 50 {
		t.Fatalf("expected default limit 50, got %d", repo.lastArgs.limit)
	}

	if _, err := uc.ListByState(context.Background(), domain.StateFailed, -5); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastArgs.limit != 50 {
		t.Fatalf("expected default limit 50 for negative input, got %d", repo.lastArgs.limit)
	}

	if _, err := uc.ListByState(context.Background(), domain.StateFailed, 10); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastArgs.limit != 10 {
		t.Fatalf("expected explicit limit 10, got %d", repo.lastArgs.limit)
	}
}
