package repository

import (
	"context"
	"time"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// RecoveryRepository is the durable ledger of deferred settlements.
type RecoveryRepository interface {
	Enqueue(ctx context.Context, job *model.RecoveryJob) error
	GetByID(ctx context.Context, id string) (*model.RecoveryJob, error)
	// ClaimDue leases up to limit pending jobs that are due at now and not
	// currently leased by another drain.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]model.RecoveryJob, error)
	Resolve(ctx context.Context, id string, at time.Time) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastError string, at time.Time) error
	MarkExhausted(ctx context.Context, id string, attempts int, lastError string, at time.Time) error
	// Requeue moves an exhausted job back to pending, due at the given time.
	Requeue(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error)
}
