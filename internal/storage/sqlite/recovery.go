package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

const jobColumns = `id, order_id, payload, reason, status, attempts, next_attempt_at, last_error,
        locked_until, created_at, updated_at, resolved_at`

func scanJob(row rowScanner) (*model.RecoveryJob, error) {
	var (
		j           model.RecoveryJob
		payload     string
		reason      string
		status      string
		nextAttempt int64
		lockedUntil sql.NullInt64
		createdAt   int64
		updatedAt   int64
		resolvedAt  sql.NullInt64
	)
	err := row.Scan(&j.ID, &j.OrderID, &payload, &reason, &status, &j.Attempts, &nextAttempt,
		&j.LastError, &lockedUntil, &createdAt, &updatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	j.Reason = model.RecoveryReason(reason)
	j.Status = model.RecoveryStatus(status)
	j.NextAttemptAt = fromMillis(nextAttempt)
	j.LockedUntil = fromNullMillis(lockedUntil)
	j.CreatedAt = fromMillis(createdAt)
	j.UpdatedAt = fromMillis(updatedAt)
	j.ResolvedAt = fromNullMillis(resolvedAt)
	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]model.RecoveryJob, error) {
	defer rows.Close()
	var jobs []model.RecoveryJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *recoveryRepository) Enqueue(ctx context.Context, job *model.RecoveryJob) error {
	const query = `INSERT INTO recovery_jobs (id, order_id, payload, reason, status, attempts, next_attempt_at,
                   last_error, created_at, updated_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.storage.db.ExecContext(ctx, query, job.ID, job.OrderID, string(job.Payload), string(job.Reason),
		string(job.Status), job.Attempts, toMillis(job.NextAttemptAt), job.LastError, toMillis(job.CreatedAt),
		toMillis(job.UpdatedAt))
	if err != nil && isUniqueViolation(err) {
		return domainErrors.ErrAlreadyExists
	}
	return err
}

func (r *recoveryRepository) GetByID(ctx context.Context, id string) (*model.RecoveryJob, error) {
	query := `SELECT ` + jobColumns + ` FROM recovery_jobs WHERE id=?`
	job, err := scanJob(r.storage.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimDue leases each due job with a conditional update so a job already
// leased by a concurrent drain is skipped.
func (r *recoveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]model.RecoveryJob, error) {
	const selectQuery = `SELECT id FROM recovery_jobs
                         WHERE status='pending' AND next_attempt_at <= ?
                           AND (locked_until IS NULL OR locked_until <= ?)
                         ORDER BY attempts, next_attempt_at
                         LIMIT ?`
	const claimQuery = `UPDATE recovery_jobs SET locked_until=?, updated_at=?
                        WHERE id=? AND status='pending' AND (locked_until IS NULL OR locked_until <= ?)`
	getQuery := `SELECT ` + jobColumns + ` FROM recovery_jobs WHERE id=?`

	nowMs := toMillis(now)
	leaseMs := toMillis(now.Add(lease))

	var jobs []model.RecoveryJob
	err := r.storage.WithinTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectQuery, nowMs, nowMs, limit)
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			res, err := tx.ExecContext(ctx, claimQuery, leaseMs, nowMs, id, nowMs)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				continue
			}
			job, err := scanJob(tx.QueryRowContext(ctx, getQuery, id))
			if err != nil {
				return err
			}
			jobs = append(jobs, *job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *recoveryRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.storage.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *recoveryRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	ms := toMillis(at)
	return r.exec(ctx, `UPDATE recovery_jobs SET status='resolved', resolved_at=?, locked_until=NULL, updated_at=?
                        WHERE id=?`, ms, ms, id)
}

func (r *recoveryRepository) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastError string, at time.Time) error {
	return r.exec(ctx, `UPDATE recovery_jobs SET attempts=?, next_attempt_at=?, last_error=?, locked_until=NULL,
                        updated_at=? WHERE id=?`, attempts, toMillis(next), lastError, toMillis(at), id)
}

func (r *recoveryRepository) MarkExhausted(ctx context.Context, id string, attempts int, lastError string, at time.Time) error {
	return r.exec(ctx, `UPDATE recovery_jobs SET status='exhausted', attempts=?, last_error=?, locked_until=NULL,
                        updated_at=? WHERE id=?`, attempts, lastError, toMillis(at), id)
}

func (r *recoveryRepository) Requeue(ctx context.Context, id string, at time.Time) error {
	ms := toMillis(at)
	res, err := r.storage.db.ExecContext(ctx, `UPDATE recovery_jobs SET status='pending', next_attempt_at=?,
                        locked_until=NULL, updated_at=? WHERE id=? AND status='exhausted'`, ms, ms, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domainErrors.ErrInvalidTransition
}

func (r *recoveryRepository) List(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.storage.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM recovery_jobs
                   ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = r.storage.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM recovery_jobs
                   WHERE status=? ORDER BY created_at DESC LIMIT ?`, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}
