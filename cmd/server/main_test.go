package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/v4vapp/bridge/internal/domain"
	"github.com/v4vapp/bridge/internal/usecase"
)

type fakeErrorCodeRepo struct {
	codes map[string]*domain.ErrorCode
}

func newFakeErrorCodeRepo() *fakeErrorCodeRepo {
	return &fakeErrorCodeRepo{codes: make(map[string]*domain.ErrorCode)}
}

func (f *fakeErrorCodeRepo) Get(ctx context.Context, code, machineID string) (*domain.ErrorCode, error) {
	if ec, ok := f.codes[code+machineID]; ok {
		return ec, nil
	}
	return nil, domain.ErrErrorCodeNotFound
}

func (f *fakeErrorCodeRepo) Upsert(ctx context.Context, ec *domain.ErrorCode) error {
	f.codes[ec.Code+ec.MachineID] = ec
	return nil
}

type fakeNotifier struct {
	calls int32
}

func (f *fakeNotifier) Notify(ctx context.Context, msg usecase.NotificationMessage) {
	atomic.AddInt32(&f.calls, 1)
}

func TestRunWatcherRetriesThenStopsOnCancel(t *testing.T) {
	errCodeUC := usecase.NewErrorCodeUseCase(newFakeErrorCodeRepo(), "test-machine")
	notifier := &fakeNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	var attempts int32

	done := make(chan struct{})
	go func() {
		runWatcher(ctx, "test", zerolog.Nop(), errCodeUC, notifier, func(ctx context.Context) error {
			n := atomic.AddInt32(&attempts, 1)
			if n >= 2 {
				cancel()
			}
			return errors.New("boom")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runWatcher did not stop after cancel")
	}

	if atomic.LoadInt32(&attempts) < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
	if atomic.LoadInt32(&notifier.calls) == 0 {
		t.Fatalf("expected at least one notification for a fresh failure")
	}
}

func TestRunRouterLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	errCodeUC := usecase.NewErrorCodeUseCase(newFakeErrorCodeRepo(), "test-machine")
	notifier := &fakeNotifier{}

	done := make(chan struct{})
	go func() {
		runRouterLoop(ctx, nil, zerolog.Nop(), errCodeUC, notifier)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runRouterLoop did not stop after context deadline")
	}
}
