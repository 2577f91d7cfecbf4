package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/storepay/internal/domain/model"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for condition")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNewRecoveryWorkerDefaults(t *testing.T) {
	w := NewRecoveryWorker(&testhelpers.WorkerFacadeStub{}, 0, 0, 0, discardLogger())
	if w.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", w.batchSize)
	}
	if w.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", w.workers)
	}
	if w.pollInterval != time.Second {
		t.Fatalf("expected poll interval default to 1s, got %s", w.pollInterval)
	}
}

func TestRecoveryWorkerProcessesClaimedJobs(t *testing.T) {
	facade := &testhelpers.WorkerFacadeStub{Batches: [][]model.RecoveryJob{
		{{ID: "j1", OrderID: "o1"}},
		{{ID: "j2", OrderID: "o2"}},
	}}
	w := NewRecoveryWorker(facade, 10*time.Millisecond, 5, 2, discardLogger())

	w.Start(context.Background())
	waitFor(t, time.Second, func() bool {
		facade.Lock()
		defer facade.Unlock()
		return len(facade.Processed) == 2
	})
	w.Stop()

	facade.Lock()
	defer facade.Unlock()
	seen := map[string]bool{}
	for _, id := range facade.Processed {
		seen[id] = true
	}
	if !seen["j1"] || !seen["j2"] {
		t.Fatalf("unexpected processed jobs %v", facade.Processed)
	}
}

func TestRecoveryWorkerDrainsFullBatchesWithinOneTick(t *testing.T) {
	facade := &testhelpers.WorkerFacadeStub{Batches: [][]model.RecoveryJob{
		{{ID: "j1"}, {ID: "j2"}},
		{{ID: "j3"}, {ID: "j4"}},
		{{ID: "j5"}},
	}}
	w := NewRecoveryWorker(facade, time.Hour, 2, 1, discardLogger())

	w.Start(context.Background())
	waitFor(t, time.Second, func() bool {
		facade.Lock()
		defer facade.Unlock()
		return len(facade.Processed) == 5
	})
	w.Stop()

	if calls := facade.ClaimCalls(); calls != 3 {
		t.Fatalf("expected three claims, got %d", calls)
	}
}

func TestRecoveryWorkerSurvivesErrors(t *testing.T) {
	claims := 0
	facade := &testhelpers.WorkerFacadeStub{
		ClaimFn: func(context.Context) ([]model.RecoveryJob, error) {
			claims++
			if claims == 1 {
				return nil, errors.New("database unavailable")
			}
			if claims == 2 {
				return []model.RecoveryJob{{ID: "j1"}}, nil
			}
			return nil, nil
		},
	}
	processed := make(chan string, 1)
	facade.ProcessFn = func(_ context.Context, job model.RecoveryJob) (string, error) {
		processed <- job.ID
		return "", errors.New("resolve failed")
	}
	w := NewRecoveryWorker(facade, 5*time.Millisecond, 1, 1, discardLogger())

	w.Start(context.Background())
	select {
	case id := <-processed:
		if id != "j1" {
			t.Fatalf("unexpected job %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for processing after claim error")
	}
	w.Stop()
}

func TestRecoveryWorkerStopIsIdempotent(t *testing.T) {
	w := NewRecoveryWorker(&testhelpers.WorkerFacadeStub{}, 5*time.Millisecond, 1, 1, discardLogger())
	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	w.Start(ctx)
	cancel()
	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
}
