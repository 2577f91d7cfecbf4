package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

const jobColumns = `id, order_id, payload, reason, status, attempts, next_attempt_at, last_error,
        locked_until, created_at, updated_at, resolved_at`

func scanJob(row rowScanner) (*model.RecoveryJob, error) {
	var (
		j      model.RecoveryJob
		reason string
		status string
	)
	err := row.Scan(&j.ID, &j.OrderID, &j.Payload, &reason, &status, &j.Attempts, &j.NextAttemptAt,
		&j.LastError, &j.LockedUntil, &j.CreatedAt, &j.UpdatedAt, &j.ResolvedAt)
	if err != nil {
		return nil, err
	}
	j.Reason = model.RecoveryReason(reason)
	j.Status = model.RecoveryStatus(status)
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]model.RecoveryJob, error) {
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
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.storage.pool.Exec(ctx, query, job.ID, job.OrderID, []byte(job.Payload), string(job.Reason),
		string(job.Status), job.Attempts, job.NextAttemptAt, job.LastError, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
	}
	return err
}

func (r *recoveryRepository) GetByID(ctx context.Context, id string) (*model.RecoveryJob, error) {
	query := `SELECT ` + jobColumns + ` FROM recovery_jobs WHERE id=$1`
	job, err := scanJob(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *recoveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]model.RecoveryJob, error) {
	const selectQuery = `SELECT id FROM recovery_jobs
                         WHERE status='pending' AND next_attempt_at <= $1
                           AND (locked_until IS NULL OR locked_until <= $1)
                         ORDER BY attempts, next_attempt_at
                         LIMIT $2
                         FOR UPDATE SKIP LOCKED`
	claimQuery := `UPDATE recovery_jobs SET locked_until=$1, updated_at=$2
                   WHERE id = ANY($3)
                   RETURNING ` + jobColumns

	var jobs []model.RecoveryJob
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, now, limit)
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
		if len(ids) == 0 {
			return nil
		}

		claimed, err := tx.Query(ctx, claimQuery, now.Add(lease), now, ids)
		if err != nil {
			return err
		}
		jobs, err = collectJobs(claimed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *recoveryRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.storage.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *recoveryRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE recovery_jobs SET status='resolved', resolved_at=$2, locked_until=NULL, updated_at=$2
                        WHERE id=$1`, id, at)
}

func (r *recoveryRepository) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastError string, at time.Time) error {
	return r.exec(ctx, `UPDATE recovery_jobs SET attempts=$2, next_attempt_at=$3, last_error=$4, locked_until=NULL,
                        updated_at=$5 WHERE id=$1`, id, attempts, next, lastError, at)
}

func (r *recoveryRepository) MarkExhausted(ctx context.Context, id string, attempts int, lastError string, at time.Time) error {
	return r.exec(ctx, `UPDATE recovery_jobs SET status='exhausted', attempts=$2, last_error=$3, locked_until=NULL,
                        updated_at=$4 WHERE id=$1`, id, attempts, lastError, at)
}

func (r *recoveryRepository) Requeue(ctx context.Context, id string, at time.Time) error {
	tag, err := r.storage.pool.Exec(ctx, `UPDATE recovery_jobs SET status='pending', next_attempt_at=$2,
                        locked_until=NULL, updated_at=$2 WHERE id=$1 AND status='exhausted'`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domainErrors.ErrInvalidTransition
}

func (r *recoveryRepository) List(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.storage.pool.Query(ctx, `SELECT `+jobColumns+` FROM recovery_jobs
                   ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = r.storage.pool.Query(ctx, `SELECT `+jobColumns+` FROM recovery_jobs
                   WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}
