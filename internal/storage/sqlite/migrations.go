package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create orders",
		statements: []string{
			`CREATE TABLE orders (
                id TEXT PRIMARY KEY,
                reference TEXT NOT NULL UNIQUE,
                customer_name TEXT NOT NULL,
                email TEXT NOT NULL DEFAULT '',
                phone TEXT NOT NULL,
                items TEXT NOT NULL,
                delivery TEXT NOT NULL,
                shipping_amount INTEGER NOT NULL DEFAULT 0,
                total INTEGER NOT NULL,
                payment_method TEXT NOT NULL,
                paid INTEGER NOT NULL DEFAULT 0,
                status TEXT NOT NULL,
                status_history TEXT NOT NULL,
                merchant_request_id TEXT,
                checkout_request_id TEXT,
                payment_correlation TEXT,
                last_payment_error TEXT NOT NULL DEFAULT '',
                last_notification_error TEXT NOT NULL DEFAULT '',
                version INTEGER NOT NULL DEFAULT 1,
                created_at INTEGER NOT NULL,
                updated_at INTEGER NOT NULL
            )`,
			`CREATE INDEX idx_orders_merchant_request ON orders(merchant_request_id)`,
			`CREATE INDEX idx_orders_checkout_request ON orders(checkout_request_id)`,
			`CREATE INDEX idx_orders_method_created ON orders(payment_method, created_at DESC)`,
		},
	},
	{
		version: 2,
		name:    "create recovery jobs",
		statements: []string{
			`CREATE TABLE recovery_jobs (
                id TEXT PRIMARY KEY,
                order_id TEXT NOT NULL,
                payload TEXT NOT NULL,
                reason TEXT NOT NULL,
                status TEXT NOT NULL,
                attempts INTEGER NOT NULL DEFAULT 0,
                next_attempt_at INTEGER NOT NULL,
                last_error TEXT NOT NULL DEFAULT '',
                locked_until INTEGER,
                created_at INTEGER NOT NULL,
                updated_at INTEGER NOT NULL,
                resolved_at INTEGER
            )`,
			`CREATE INDEX idx_recovery_jobs_due ON recovery_jobs(status, next_attempt_at)`,
			`CREATE INDEX idx_recovery_jobs_order ON recovery_jobs(order_id)`,
		},
	},
}

// Migrate applies pending schema versions, each in its own transaction.
func (s *Storage) Migrate(ctx context.Context) error {
	const bootstrap = `CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            applied_at INTEGER NOT NULL
        )`
	if _, err := s.db.ExecContext(ctx, bootstrap); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := s.WithinTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, toMillis(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info("migration applied", slog.Int("version", m.version), slog.String("name", m.name))
	}

	return nil
}

// SchemaVersion reports the highest applied migration.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (s *Storage) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applied, nil
}
