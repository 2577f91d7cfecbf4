// Package notification renders order and operator messages and hands them to a sender.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polkiloo/storepay/internal/adapter/notify"
	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

// Notifier sends best-effort customer notifications and operator alerts.
type Notifier struct {
	sender   notify.Sender
	operator string
	logger   *slog.Logger
}

// NewNotifier sends through sender. Operator alerts go to operatorEmail and are
// skipped when it is empty.
func NewNotifier(sender notify.Sender, operatorEmail string, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, operator: operatorEmail, logger: logger}
}

type orderView struct {
	Order        *model.Order
	From         model.OrderStatus
	PaymentError string
}

type alertView struct {
	OrderID string
	JobID   string
	Reason  string
	Payload string
}

// OrderCreated notifies the customer and the operator about a new order.
func (n *Notifier) OrderCreated(ctx context.Context, order *model.Order, paymentErr error) error {
	view := orderView{Order: order}
	if paymentErr != nil {
		view.PaymentError = paymentErr.Error()
	}
	return errors.Join(
		n.sendCustomer(ctx, order, "Order "+order.Reference+" received", "order_created", view),
		n.send(ctx, n.operator, "New order "+order.Reference, "order_created_operator", view),
	)
}

// PaymentReceived confirms a settled payment to the customer and the operator.
func (n *Notifier) PaymentReceived(ctx context.Context, order *model.Order) error {
	view := orderView{Order: order}
	subject := "Payment received for order " + order.Reference
	return errors.Join(
		n.sendCustomer(ctx, order, subject, "payment_received", view),
		n.send(ctx, n.operator, subject, "payment_received", view),
	)
}

// StatusChanged reports an administrative status change.
func (n *Notifier) StatusChanged(ctx context.Context, order *model.Order, from model.OrderStatus) error {
	view := orderView{Order: order, From: from}
	subject := fmt.Sprintf("Order %s is now %s", order.Reference, order.Status)
	return errors.Join(
		n.sendCustomer(ctx, order, subject, "status_changed", view),
		n.send(ctx, n.operator, subject, "status_changed", view),
	)
}

// AlertUnmatched tells the operator about a callback that matched no order.
func (n *Notifier) AlertUnmatched(ctx context.Context, cause *domainErrors.UnmatchedCallbackError, payload []byte) error {
	return n.alert(ctx, "Unmatched payment callback", "alert_unmatched",
		alertView{Reason: cause.Error(), Payload: prettyPayload(payload)})
}

// AlertWriteFailure tells the operator that a matched payment could not be confirmed.
func (n *Notifier) AlertWriteFailure(ctx context.Context, cause *domainErrors.ReconciliationWriteError, jobID string, payload []byte) error {
	return n.alert(ctx, "Payment reconciliation failed for order "+cause.OrderID, "alert_write_failure",
		alertView{OrderID: cause.OrderID, JobID: jobID, Reason: cause.Error(), Payload: prettyPayload(payload)})
}

// AlertExhausted tells the operator that a recovery job ran out of attempts.
func (n *Notifier) AlertExhausted(ctx context.Context, cause *domainErrors.RecoveryExhaustedError, payload []byte) error {
	return n.alert(ctx, "Recovery job exhausted for order "+cause.OrderID, "alert_exhausted",
		alertView{OrderID: cause.OrderID, JobID: cause.JobID, Reason: cause.Error(), Payload: prettyPayload(payload)})
}

// AlertReview flags a callback that conflicts with the stored order state.
func (n *Notifier) AlertReview(ctx context.Context, orderID, reason string, payload []byte) error {
	return n.alert(ctx, "Payment callback needs review for order "+orderID, "alert_review",
		alertView{OrderID: orderID, Reason: reason, Payload: prettyPayload(payload)})
}

func (n *Notifier) alert(ctx context.Context, subject, tmpl string, view alertView) error {
	err := n.send(ctx, n.operator, subject, tmpl, view)
	if err != nil {
		n.logger.ErrorContext(ctx, "operator alert not delivered",
			slog.String("subject", subject), slog.String("error", err.Error()))
	}
	return err
}

func (n *Notifier) sendCustomer(ctx context.Context, order *model.Order, subject, tmpl string, view orderView) error {
	if order.Email == "" {
		return nil
	}
	return n.send(ctx, order.Email, subject, tmpl, view)
}

func (n *Notifier) send(ctx context.Context, to, subject, tmpl string, data any) error {
	if to == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	if err := n.sender.Send(ctx, notify.Message{To: to, Subject: subject, HTML: buf.String()}); err != nil {
		return fmt.Errorf("send %s to %s: %w", tmpl, to, err)
	}
	return nil
}

func prettyPayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return string(payload)
	}
	return buf.String()
}
