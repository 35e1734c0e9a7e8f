package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pruningStore struct {
	*memoryStore
	cutoffs chan time.Time
}

func (p *pruningStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs <- cutoff
	return 2, nil
}

func TestPruneHistory(t *testing.T) {
	store := &pruningStore{memoryStore: newMemoryStore(), cutoffs: make(chan time.Time, 1)}
	svc := newTestService(store)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	n, err := svc.PruneHistory(context.Background(), 30)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PruneHistory() = %d, want 2", n)
	}
	if got, want := <-store.cutoffs, now.AddDate(0, 0, -30); !got.Equal(want) {
		t.Errorf("cutoff = %v, want %v", got, want)
	}
}

func TestPruneHistory_Unsupported(t *testing.T) {
	if _, err := newTestService(nil).PruneHistory(context.Background(), 1); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("without store error = %v, want ErrHistoryDisabled", err)
	}
	if _, err := newTestService(newMemoryStore()).PruneHistory(context.Background(), 1); !errors.Is(err, ErrPruneUnsupported) {
		t.Errorf("plain store error = %v, want ErrPruneUnsupported", err)
	}
}

func TestStartPruneScheduler(t *testing.T) {
	store := &pruningStore{memoryStore: newMemoryStore(), cutoffs: make(chan time.Time, 4)}
	svc := newTestService(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartPruneScheduler(ctx, RetentionConfig{RetentionDays: 7, CheckInterval: time.Hour})
		close(done)
	}()

	select {
	case <-store.cutoffs:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not prune on start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestStartPruneScheduler_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		newTestService(newMemoryStore()).StartPruneScheduler(context.Background(), RetentionConfig{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler should return immediately")
	}
}
