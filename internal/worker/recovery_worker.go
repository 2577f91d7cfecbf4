package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// RecoveryFacade exposes the subset of application functionality required by the worker.
type RecoveryFacade interface {
	ClaimRecoveryJobs(ctx context.Context) ([]model.RecoveryJob, error)
	ProcessRecoveryJob(ctx context.Context, job model.RecoveryJob) (string, error)
}

// RecoveryWorker periodically claims due recovery jobs and processes them concurrently.
type RecoveryWorker struct {
	facade       RecoveryFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewRecoveryWorker constructs the recovery worker pool.
func NewRecoveryWorker(facade RecoveryFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *RecoveryWorker {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &RecoveryWorker{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
	}
}

// Start launches background processing. The first drain runs immediately.
func (w *RecoveryWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	jobs := make(chan model.RecoveryJob, w.batchSize*w.workers)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker(runCtx, jobs)
	}

	w.wg.Add(1)
	go w.dispatch(runCtx, jobs)
}

// Stop cancels the dispatcher and waits for in-flight jobs to finish.
func (w *RecoveryWorker) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *RecoveryWorker) dispatch(ctx context.Context, jobs chan<- model.RecoveryJob) {
	defer w.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.claimAndDispatch(ctx, jobs)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.claimAndDispatch(ctx, jobs)
		}
	}
}

// claimAndDispatch keeps claiming while full batches come back so a backlog
// drains within one tick.
func (w *RecoveryWorker) claimAndDispatch(ctx context.Context, out chan<- model.RecoveryJob) {
	for ctx.Err() == nil {
		claimed, err := w.facade.ClaimRecoveryJobs(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "claim recovery jobs failed", slog.String("error", err.Error()))
			return
		}
		for _, job := range claimed {
			select {
			case <-ctx.Done():
				return
			case out <- job:
			}
		}
		if len(claimed) < w.batchSize {
			return
		}
	}
}

func (w *RecoveryWorker) worker(ctx context.Context, jobs <-chan model.RecoveryJob) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handleJob(ctx, job)
		}
	}
}

func (w *RecoveryWorker) handleJob(ctx context.Context, job model.RecoveryJob) {
	outcome, err := w.facade.ProcessRecoveryJob(ctx, job)
	if err != nil {
		w.logger.ErrorContext(ctx, "recovery job failed",
			slog.String("job_id", job.ID),
			slog.String("order_id", job.OrderID),
			slog.String("error", err.Error()))
		return
	}
	w.logger.DebugContext(ctx, "recovery job processed",
		slog.String("job_id", job.ID), slog.String("outcome", outcome))
}
