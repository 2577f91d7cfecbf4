package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

const (
	enqueueAttempts  = 3
	defaultListLimit = 100
	orderNotFound    = "order not found"
)

// RecoveryPolicy bounds redrive attempts and their spacing.
type RecoveryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	LeaseTTL    time.Duration
	BatchSize   int
}

// Backoff returns the delay before the next attempt once attempts have failed.
func (p RecoveryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := p.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// RecoveryOutcome is the result of processing one job.
type RecoveryOutcome string

const (
	RecoveryResolved    RecoveryOutcome = "resolved"
	RecoveryRescheduled RecoveryOutcome = "rescheduled"
	RecoveryExhausted   RecoveryOutcome = "exhausted"
)

// RecoveryQueue is the durable retry ledger for unconfirmed settlements.
type RecoveryQueue struct {
	jobs       repository.RecoveryRepository
	orders     repository.OrderRepository
	settlement *Settlement
	notifier   Notifications
	policy     RecoveryPolicy
	now        Clock
	newID      func() string
	logger     *slog.Logger
}

// NewRecoveryQueue constructs RecoveryQueue.
func NewRecoveryQueue(jobs repository.RecoveryRepository, orders repository.OrderRepository, settlement *Settlement,
	notifier Notifications, policy RecoveryPolicy, now Clock, logger *slog.Logger) *RecoveryQueue {
	return &RecoveryQueue{
		jobs:       jobs,
		orders:     orders,
		settlement: settlement,
		notifier:   notifier,
		policy:     policy,
		now:        now,
		newID:      uuid.NewString,
		logger:     logger,
	}
}

// Enqueue durably stores a redrive request and returns its id. The job is due
// immediately.
func (q *RecoveryQueue) Enqueue(ctx context.Context, orderID string, payload []byte, reason model.RecoveryReason) (string, error) {
	now := q.now()
	job := &model.RecoveryJob{
		OrderID:       orderID,
		Payload:       append(json.RawMessage(nil), payload...),
		Reason:        reason,
		Status:        model.RecoveryStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var err error
	for attempt := 0; attempt < enqueueAttempts; attempt++ {
		job.ID = q.newID()
		if err = q.jobs.Enqueue(ctx, job); err == nil {
			q.logger.InfoContext(ctx, "recovery job enqueued",
				slog.String("job_id", job.ID),
				slog.String("order_id", orderID),
				slog.String("reason", string(reason)))
			return job.ID, nil
		}
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			break
		}
	}
	return "", fmt.Errorf("enqueue recovery job for order %s: %w", orderID, err)
}

// ClaimDue leases the next batch of due jobs.
func (q *RecoveryQueue) ClaimDue(ctx context.Context) ([]model.RecoveryJob, error) {
	return q.jobs.ClaimDue(ctx, q.now(), q.policy.BatchSize, q.policy.LeaseTTL)
}

// Process redrives one claimed job.
func (q *RecoveryQueue) Process(ctx context.Context, job model.RecoveryJob) (RecoveryOutcome, error) {
	cb, err := model.ParseCallback(job.Payload)
	if err != nil {
		return q.exhaust(ctx, job, job.Attempts+1, "stored payload is unreadable: "+err.Error())
	}
	if !cb.HasResult {
		return q.exhaust(ctx, job, job.Attempts+1, "stored payload carries no result code")
	}

	order, outcome, err := q.settlement.Settle(ctx, nil, job.OrderID, cb, model.ActorRecoveryWorker)
	if err != nil {
		return q.retryLater(ctx, job, err)
	}

	log := q.logger.With(slog.String("job_id", job.ID), slog.String("order_id", job.OrderID))
	switch outcome {
	case SettleNeedsReview:
		reason := "successful payment reported for a failed order"
		if err := q.jobs.MarkExhausted(ctx, job.ID, job.Attempts+1, reason, q.now()); err != nil {
			return "", fmt.Errorf("mark job %s exhausted: %w", job.ID, err)
		}
		log.WarnContext(ctx, "recovery job needs review")
		_ = q.notifier.AlertReview(ctx, job.OrderID, reason, job.Payload)
		return RecoveryExhausted, nil
	case SettlePaid:
		if err := q.notifier.PaymentReceived(ctx, order); err != nil {
			recordNotificationError(ctx, q.orders, order, err, q.logger)
		}
	}

	if err := q.jobs.Resolve(ctx, job.ID, q.now()); err != nil {
		return "", fmt.Errorf("resolve job %s: %w", job.ID, err)
	}
	log.InfoContext(ctx, "recovery job resolved",
		slog.String("outcome", string(outcome)), slog.Int("attempts", job.Attempts+1))
	return RecoveryResolved, nil
}

func (q *RecoveryQueue) retryLater(ctx context.Context, job model.RecoveryJob, cause error) (RecoveryOutcome, error) {
	attempts := job.Attempts + 1
	lastError := cause.Error()
	if errors.Is(cause, domainErrors.ErrNotFound) {
		lastError = orderNotFound
	}
	if attempts >= q.policy.MaxAttempts {
		return q.exhaust(ctx, job, attempts, lastError)
	}

	now := q.now()
	next := now.Add(q.policy.Backoff(attempts))
	if err := q.jobs.Reschedule(ctx, job.ID, attempts, next, lastError, now); err != nil {
		return "", fmt.Errorf("reschedule job %s: %w", job.ID, err)
	}
	q.logger.WarnContext(ctx, "recovery job rescheduled",
		slog.String("job_id", job.ID),
		slog.String("order_id", job.OrderID),
		slog.Int("attempts", attempts),
		slog.Time("next_attempt_at", next),
		slog.String("error", lastError))
	return RecoveryRescheduled, nil
}

func (q *RecoveryQueue) exhaust(ctx context.Context, job model.RecoveryJob, attempts int, lastError string) (RecoveryOutcome, error) {
	if err := q.jobs.MarkExhausted(ctx, job.ID, attempts, lastError, q.now()); err != nil {
		return "", fmt.Errorf("mark job %s exhausted: %w", job.ID, err)
	}
	cause := &domainErrors.RecoveryExhaustedError{
		JobID:     job.ID,
		OrderID:   job.OrderID,
		Attempts:  attempts,
		LastError: lastError,
	}
	q.logger.ErrorContext(ctx, "recovery job exhausted",
		slog.String("job_id", job.ID),
		slog.String("order_id", job.OrderID),
		slog.Int("attempts", attempts),
		slog.String("error", lastError))
	_ = q.notifier.AlertExhausted(ctx, cause, job.Payload)
	return RecoveryExhausted, nil
}

// Drain claims and processes due jobs until none are left.
func (q *RecoveryQueue) Drain(ctx context.Context) (model.DrainSummary, error) {
	var summary model.DrainSummary
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		jobs, err := q.ClaimDue(ctx)
		if err != nil {
			return summary, fmt.Errorf("claim recovery jobs: %w", err)
		}
		if len(jobs) == 0 {
			return summary, nil
		}
		summary.Claimed += len(jobs)
		for _, job := range jobs {
			outcome, err := q.Process(ctx, job)
			if err != nil {
				summary.Errors++
				q.logger.ErrorContext(ctx, "recovery job failed",
					slog.String("job_id", job.ID), slog.String("error", err.Error()))
				continue
			}
			switch outcome {
			case RecoveryResolved:
				summary.Resolved++
			case RecoveryRescheduled:
				summary.Rescheduled++
			case RecoveryExhausted:
				summary.Exhausted++
			}
		}
	}
}

// List returns jobs filtered by status. An empty status lists every job.
func (q *RecoveryQueue) List(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	if status != "" && !status.Valid() {
		return nil, &domainErrors.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown job status %q", status)}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return q.jobs.List(ctx, status, limit)
}

// Retry moves an exhausted job back to pending and makes it due now.
func (q *RecoveryQueue) Retry(ctx context.Context, jobID string) (*model.RecoveryJob, error) {
	if err := q.jobs.Requeue(ctx, jobID, q.now()); err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "recovery job requeued", slog.String("job_id", jobID))
	return q.jobs.GetByID(ctx, jobID)
}
