package repository

import "context"

// Store is the storage port implemented by every backend.
type Store interface {
	Orders() OrderRepository
	RecoveryJobs() RecoveryRepository
	Migrate(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close()
}
