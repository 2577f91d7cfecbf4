package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

const maxWriteAttempts = 5

// mutateFunc changes the order in place and reports whether it must be written.
type mutateFunc func(order *model.Order) (bool, error)

// mutateOrder applies fn under optimistic concurrency. When current is nil the
// order is loaded first. A version conflict discards the local copy, reloads
// the row and replays fn, so concurrent history appends are never lost.
func mutateOrder(ctx context.Context, orders repository.OrderRepository, current *model.Order, id string, fn mutateFunc) (*model.Order, bool, error) {
	order := current
	for attempt := 1; ; attempt++ {
		if order == nil {
			loaded, err := orders.GetByID(ctx, id)
			if err != nil {
				return nil, false, err
			}
			order = loaded
		}

		write, err := fn(order)
		if err != nil {
			return order, false, err
		}
		if !write {
			return order, false, nil
		}

		err = orders.Update(ctx, order)
		if err == nil {
			return order, true, nil
		}
		if !errors.Is(err, domainErrors.ErrConflict) || attempt >= maxWriteAttempts {
			return order, false, fmt.Errorf("update order %s: %w", id, err)
		}
		order = nil
	}
}

// recordNotificationError stores a best-effort delivery failure on the order.
func recordNotificationError(ctx context.Context, orders repository.OrderRepository, order *model.Order, cause error, logger *slog.Logger) {
	logger.WarnContext(ctx, "notification not delivered",
		slog.String("order_id", order.ID), slog.String("error", cause.Error()))
	_, _, err := mutateOrder(ctx, orders, order, order.ID, func(o *model.Order) (bool, error) {
		o.LastNotificationError = cause.Error()
		return true, nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "record notification error",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}
}

// recordPaymentError stores a payment failure unless the order is already settled.
func recordPaymentError(ctx context.Context, orders repository.OrderRepository, orderID, message string, logger *slog.Logger) {
	_, _, err := mutateOrder(ctx, orders, nil, orderID, func(o *model.Order) (bool, error) {
		if o.PaymentConfirmed() || o.LastPaymentError == message {
			return false, nil
		}
		o.LastPaymentError = message
		return true, nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "record payment error",
			slog.String("order_id", orderID), slog.String("error", err.Error()))
	}
}
