package repository

import (
	"context"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetByCorrelation(ctx context.Context, merchantRequestID, checkoutRequestID string) (*model.Order, error)
	GetByReference(ctx context.Context, reference string) (*model.Order, error)
	ListMobileMoneyByPhoneSuffix(ctx context.Context, suffix string) ([]model.Order, error)
	// Update writes the order only if its stored version equals order.Version
	// and bumps the version on success. A stale version yields ErrConflict.
	Update(ctx context.Context, order *model.Order) error
}
