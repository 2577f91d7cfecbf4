package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

const adminActorPrefix = "admin:"

// AdminUseCase exposes manual reconciliation to an authenticated operator.
type AdminUseCase struct {
	orders   repository.OrderRepository
	checkout *CheckoutUseCase
	queue    *RecoveryQueue
	notifier Notifications
	now      Clock
	logger   *slog.Logger
}

// NewAdminUseCase constructs AdminUseCase.
func NewAdminUseCase(orders repository.OrderRepository, checkout *CheckoutUseCase, queue *RecoveryQueue,
	notifier Notifications, now Clock, logger *slog.Logger) *AdminUseCase {
	return &AdminUseCase{orders: orders, checkout: checkout, queue: queue, notifier: notifier, now: now, logger: logger}
}

// Order returns the full order including history and correlation.
func (u *AdminUseCase) Order(ctx context.Context, id string) (*model.Order, error) {
	return u.orders.GetByID(ctx, id)
}

// OverrideStatus applies a manual transition on behalf of admin. Only unpay
// allows a paid order to be moved back to failed.
func (u *AdminUseCase) OverrideStatus(ctx context.Context, admin, id string, to model.OrderStatus, unpay bool) (*model.Order, error) {
	if !to.Valid() {
		return nil, &domainErrors.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}

	var from model.OrderStatus
	order, _, err := mutateOrder(ctx, u.orders, nil, id, func(o *model.Order) (bool, error) {
		from = o.Status
		return true, o.Override(to, adminActorPrefix+admin, u.now(), unpay)
	})
	if err != nil {
		return nil, err
	}

	u.logger.WarnContext(ctx, "order status overridden",
		slog.String("order_id", id),
		slog.String("admin", admin),
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	if err := u.notifier.StatusChanged(ctx, order, from); err != nil {
		recordNotificationError(ctx, u.orders, order, err, u.logger)
	}
	return order, nil
}

// RetryPayment re-sends the payment request of an order still in created.
func (u *AdminUseCase) RetryPayment(ctx context.Context, id string) (*model.Order, error) {
	return u.checkout.RetryPayment(ctx, id)
}

// RecoveryJobs lists recovery jobs by status.
func (u *AdminUseCase) RecoveryJobs(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	return u.queue.List(ctx, status, limit)
}

// RetryRecoveryJob makes an exhausted job due again.
func (u *AdminUseCase) RetryRecoveryJob(ctx context.Context, id string) (*model.RecoveryJob, error) {
	return u.queue.Retry(ctx, id)
}

// DrainRecovery runs one drain pass immediately.
func (u *AdminUseCase) DrainRecovery(ctx context.Context) (model.DrainSummary, error) {
	return u.queue.Drain(ctx)
}
