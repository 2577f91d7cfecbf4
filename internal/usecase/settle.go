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

// SettleOutcome is the effect a callback had on the matched order.
type SettleOutcome string

const (
	SettlePaid        SettleOutcome = "paid"
	SettleFailed      SettleOutcome = "failed"
	SettleAlreadyPaid SettleOutcome = "already_paid"
	SettleIgnored     SettleOutcome = "ignored"
	SettleNeedsReview SettleOutcome = "needs_review"
)

var (
	errNotConfirmed = errors.New("order is not paid after write")
	errNotTerminal  = errors.New("order is not failed after write")
)

// Settlement applies a callback result to one order and verifies the write.
// It is shared by the webhook path and the recovery worker.
type Settlement struct {
	orders repository.OrderRepository
	now    Clock
	logger *slog.Logger
}

// NewSettlement constructs Settlement.
func NewSettlement(orders repository.OrderRepository, now Clock, logger *slog.Logger) *Settlement {
	return &Settlement{orders: orders, now: now, logger: logger}
}

// Settle records cb on the order and re-reads the row to confirm the result.
// Any failure is returned as a *ReconciliationWriteError.
func (s *Settlement) Settle(ctx context.Context, current *model.Order, orderID string, cb *model.PaymentCallback, by string) (*model.Order, SettleOutcome, error) {
	var outcome SettleOutcome
	order, written, err := mutateOrder(ctx, s.orders, current, orderID, func(o *model.Order) (bool, error) {
		at := s.now()
		if cb.Succeeded() {
			switch {
			case o.PaymentConfirmed():
				outcome = SettleAlreadyPaid
				return false, nil
			case o.Status == model.OrderStatusFailed:
				outcome = SettleNeedsReview
				return false, nil
			}
			o.RecordCallback(cb)
			outcome = SettlePaid
			return true, o.MarkPaid(by, at)
		}
		if o.Status.Terminal() {
			outcome = SettleIgnored
			return false, nil
		}
		o.RecordCallback(cb)
		outcome = SettleFailed
		return true, o.MarkFailed(by, at, failureReason(cb))
	})
	if err != nil {
		return order, outcome, &domainErrors.ReconciliationWriteError{
			OrderID: orderID,
			Reason:  string(model.RecoveryReasonWriteFailed),
			Err:     err,
		}
	}
	if !written {
		return order, outcome, nil
	}

	stored, err := s.orders.GetByID(ctx, orderID)
	if err == nil {
		switch {
		case outcome == SettlePaid && !stored.PaymentConfirmed():
			err = errNotConfirmed
		case outcome == SettleFailed && stored.Status != model.OrderStatusFailed && !stored.PaymentConfirmed():
			err = errNotTerminal
		}
	}
	if err != nil {
		return order, outcome, &domainErrors.ReconciliationWriteError{
			OrderID: orderID,
			Reason:  string(model.RecoveryReasonVerifyFailed),
			Err:     err,
		}
	}

	s.logger.DebugContext(ctx, "settlement verified",
		slog.String("order_id", orderID), slog.String("status", string(stored.Status)))
	return stored, outcome, nil
}

func failureReason(cb *model.PaymentCallback) string {
	if cb.ResultDesc != "" {
		return cb.ResultDesc
	}
	return fmt.Sprintf("payment failed with result code %d", cb.ResultCode)
}
