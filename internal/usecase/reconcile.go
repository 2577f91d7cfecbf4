package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

// CallbackOutcome is what handling one webhook delivery did.
type CallbackOutcome string

const (
	CallbackPaid        CallbackOutcome = "paid"
	CallbackFailed      CallbackOutcome = "failed"
	CallbackAlreadyPaid CallbackOutcome = "already_paid"
	CallbackIgnored     CallbackOutcome = "ignored"
	CallbackUnmatched   CallbackOutcome = "unmatched"
	CallbackDeferred    CallbackOutcome = "deferred"
	CallbackNeedsReview CallbackOutcome = "needs_review"
	CallbackInvalid     CallbackOutcome = "invalid"
)

// MatchStrategy names the correlation step that located the order.
type MatchStrategy string

const (
	MatchCorrelation MatchStrategy = "correlation"
	MatchReference   MatchStrategy = "reference"
	MatchPhoneSuffix MatchStrategy = "phone_suffix"
)

// CallbackResult describes the handled webhook.
type CallbackResult struct {
	Outcome   CallbackOutcome
	OrderID   string
	MatchedBy MatchStrategy
	JobID     string
}

// Reconciler matches gateway webhooks to orders and settles them.
type Reconciler struct {
	orders     repository.OrderRepository
	settlement *Settlement
	queue      *RecoveryQueue
	notifier   Notifications
	logger     *slog.Logger
}

// NewReconciler constructs Reconciler.
func NewReconciler(orders repository.OrderRepository, settlement *Settlement, queue *RecoveryQueue,
	notifier Notifications, logger *slog.Logger) *Reconciler {
	return &Reconciler{orders: orders, settlement: settlement, queue: queue, notifier: notifier, logger: logger}
}

// HandleCallback reconciles one webhook body. Only a body that cannot be parsed
// yields an error; every other failure is handled internally.
func (r *Reconciler) HandleCallback(ctx context.Context, body []byte) (*CallbackResult, error) {
	cb, err := model.ParseCallback(body)
	if err != nil {
		r.logger.WarnContext(ctx, "payment callback rejected", slog.String("error", err.Error()))
		return nil, err
	}

	order, matchedBy, err := r.match(ctx, cb)
	if err != nil {
		var unmatched *domainErrors.UnmatchedCallbackError
		if !errors.As(err, &unmatched) {
			unmatched = unmatchedError(cb, "lookup failed: "+err.Error())
		}
		r.logger.WarnContext(ctx, "payment callback unmatched",
			slog.String("merchant_request_id", cb.MerchantRequestID),
			slog.String("checkout_request_id", cb.CheckoutRequestID),
			slog.String("result_code", resultCode(cb)),
			slog.String("reason", unmatched.Reason))
		_ = r.notifier.AlertUnmatched(ctx, unmatched, body)
		return &CallbackResult{Outcome: CallbackUnmatched}, nil
	}

	result := &CallbackResult{OrderID: order.ID, MatchedBy: matchedBy}
	log := r.logger.With(
		slog.String("order_id", order.ID),
		slog.String("matched_by", string(matchedBy)),
		slog.String("result_code", resultCode(cb)))

	if !cb.HasResult {
		result.Outcome = CallbackInvalid
		log.WarnContext(ctx, "payment callback carries no result code")
		_ = r.notifier.AlertReview(ctx, order.ID, "callback carries no result code", body)
		return result, nil
	}

	settled, outcome, err := r.settlement.Settle(ctx, order, order.ID, cb, model.ActorPaymentCallback)
	if err != nil {
		var writeErr *domainErrors.ReconciliationWriteError
		if !errors.As(err, &writeErr) {
			writeErr = &domainErrors.ReconciliationWriteError{OrderID: order.ID, Reason: string(model.RecoveryReasonWriteFailed), Err: err}
		}
		result.Outcome = CallbackDeferred
		result.JobID = r.deferSettlement(ctx, writeErr, body)
		log.ErrorContext(ctx, "payment callback deferred",
			slog.String("reason", writeErr.Reason),
			slog.String("job_id", result.JobID),
			slog.String("error", writeErr.Error()))
		return result, nil
	}

	switch outcome {
	case SettlePaid:
		result.Outcome = CallbackPaid
		if err := r.notifier.PaymentReceived(ctx, settled); err != nil {
			recordNotificationError(ctx, r.orders, settled, err, r.logger)
		}
	case SettleFailed:
		result.Outcome = CallbackFailed
	case SettleAlreadyPaid:
		result.Outcome = CallbackAlreadyPaid
	case SettleIgnored:
		result.Outcome = CallbackIgnored
	case SettleNeedsReview:
		result.Outcome = CallbackNeedsReview
		_ = r.notifier.AlertReview(ctx, order.ID, "successful payment reported for a failed order", body)
	}
	log.InfoContext(ctx, "payment callback reconciled", slog.String("outcome", string(result.Outcome)))
	return result, nil
}

// deferSettlement hands an unconfirmed settlement to the recovery queue and
// alerts the operator. It returns the job id, empty if enqueueing failed.
func (r *Reconciler) deferSettlement(ctx context.Context, writeErr *domainErrors.ReconciliationWriteError, body []byte) string {
	recordPaymentError(ctx, r.orders, writeErr.OrderID, writeErr.Error(), r.logger)

	jobID, err := r.queue.Enqueue(ctx, writeErr.OrderID, body, model.RecoveryReason(writeErr.Reason))
	if err != nil {
		r.logger.ErrorContext(ctx, "recovery job not enqueued",
			slog.String("order_id", writeErr.OrderID), slog.String("error", err.Error()))
	}
	_ = r.notifier.AlertWriteFailure(ctx, writeErr, jobID, body)
	return jobID
}

// match walks the correlation chain: gateway ids, account reference, then
// the phone suffix of mobile money orders.
func (r *Reconciler) match(ctx context.Context, cb *model.PaymentCallback) (*model.Order, MatchStrategy, error) {
	if cb.MerchantRequestID != "" || cb.CheckoutRequestID != "" {
		order, err := r.orders.GetByCorrelation(ctx, cb.MerchantRequestID, cb.CheckoutRequestID)
		switch {
		case err == nil:
			return order, MatchCorrelation, nil
		case !errors.Is(err, domainErrors.ErrNotFound):
			return nil, "", fmt.Errorf("find order by correlation: %w", err)
		}
	}

	if ref := strings.TrimSpace(cb.Metadata.AccountReference); ref != "" {
		order, err := r.orders.GetByReference(ctx, ref)
		switch {
		case err == nil:
			return order, MatchReference, nil
		case !errors.Is(err, domainErrors.ErrNotFound):
			return nil, "", fmt.Errorf("find order by reference: %w", err)
		}
	}

	suffix := model.PhoneSuffix(cb.Metadata.PhoneNumber)
	if suffix == "" {
		return nil, "", unmatchedError(cb, "no order matched")
	}
	candidates, err := r.orders.ListMobileMoneyByPhoneSuffix(ctx, suffix)
	if err != nil {
		return nil, "", fmt.Errorf("find orders by phone suffix: %w", err)
	}
	order, reason := pickBySuffix(withPhoneSuffix(candidates, suffix))
	if order == nil {
		return nil, "", unmatchedError(cb, reason)
	}
	r.logger.WarnContext(ctx, "payment callback matched by phone suffix",
		slog.String("order_id", order.ID),
		slog.String("phone_suffix", suffix),
		slog.Int("candidates", len(candidates)))
	return order, MatchPhoneSuffix, nil
}

// withPhoneSuffix drops candidates whose stored phone does not end in suffix.
func withPhoneSuffix(candidates []model.Order, suffix string) []model.Order {
	out := candidates[:0:0]
	for _, o := range candidates {
		if strings.HasSuffix(o.Phone, suffix) {
			out = append(out, o)
		}
	}
	return out
}

// pickBySuffix accepts a lone candidate, or the only unsettled one among many.
func pickBySuffix(candidates []model.Order) (*model.Order, string) {
	switch len(candidates) {
	case 0:
		return nil, "no order matched"
	case 1:
		return &candidates[0], ""
	}
	var open []int
	for i := range candidates {
		if !candidates[i].Status.Terminal() {
			open = append(open, i)
		}
	}
	if len(open) == 1 {
		return &candidates[open[0]], ""
	}
	return nil, fmt.Sprintf("ambiguous phone suffix: %d orders", len(candidates))
}

func unmatchedError(cb *model.PaymentCallback, reason string) *domainErrors.UnmatchedCallbackError {
	return &domainErrors.UnmatchedCallbackError{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		AccountReference:  cb.Metadata.AccountReference,
		PhoneNumber:       cb.Metadata.PhoneNumber,
		Reason:            reason,
	}
}

func resultCode(cb *model.PaymentCallback) string {
	if !cb.HasResult {
		return ""
	}
	return fmt.Sprint(cb.ResultCode)
}
