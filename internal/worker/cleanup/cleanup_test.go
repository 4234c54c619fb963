package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type mockSessionDeleter struct {
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockSessionDeleter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockCleanedRecorder struct {
	recorded int64
}

func (m *mockCleanedRecorder) RecordSessionsCleaned(count int64) {
	m.recorded += count
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	recorder := &mockCleanedRecorder{}
	job := NewCleanupJob(deleter, recorder, slog.Default())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if recorder.recorded != 3 {
		t.Errorf("recorded cleaned sessions = %d, want 3", recorder.recorded)
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	// 削除対象がなくてもエラーにならない（冪等）
	job := NewCleanupJob(&mockSessionDeleter{}, nil, slog.Default())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestCleanupJob_Run_PropagatesError(t *testing.T) {
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	job := NewCleanupJob(deleter, nil, slog.Default())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run()")
	}
}

func TestCleanupJob_RunLoop_StopsOnContextCancel(t *testing.T) {
	runs := 0
	deleter := &mockSessionDeleter{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			runs++
			return 0, nil
		},
	}
	job := NewCleanupJob(deleter, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待ってからキャンセル
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop after context cancel")
	}

	if runs < 1 {
		t.Errorf("runs = %d, want at least 1 (initial run)", runs)
	}
}
