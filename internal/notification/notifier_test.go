package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

func newTestNotifier(sender *testhelpers.SenderStub) *Notifier {
	return NewNotifier(sender, "ops@shop.example", slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func sampleOrder() *model.Order {
	o := model.NewOrder("o1", "PKX1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), model.ActorCheckout)
	o.CustomerName = "Achieng <b>Otieno</b>"
	o.Email = "achieng@example.com"
	o.Phone = "254712345678"
	o.Items = []model.LineItem{{ProductID: "p1", Name: "Kikoy wrap", UnitPrice: 40, Quantity: 2}}
	o.Total = 100
	o.PaymentMethod = model.PaymentMethodMobileMoney
	return o
}

func TestOrderCreatedNotifiesCustomerAndOperator(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := newTestNotifier(sender)

	if err := n.OrderCreated(context.Background(), sampleOrder(), errors.New("gateway timeout")); err != nil {
		t.Fatalf("order created returned error: %v", err)
	}
	if len(sender.Messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(sender.Messages))
	}
	customer, operator := sender.Messages[0], sender.Messages[1]
	if customer.To != "achieng@example.com" || operator.To != "ops@shop.example" {
		t.Fatalf("unexpected recipients %q and %q", customer.To, operator.To)
	}
	if !strings.Contains(customer.HTML, "gateway timeout") || !strings.Contains(customer.HTML, "Kikoy wrap") {
		t.Fatalf("customer message misses details: %s", customer.HTML)
	}
	if strings.Contains(customer.HTML, "<b>Otieno</b>") {
		t.Fatalf("customer name must be escaped: %s", customer.HTML)
	}
}

func TestOrderCreatedWithoutCustomerEmail(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := newTestNotifier(sender)
	order := sampleOrder()
	order.Email = ""

	if err := n.OrderCreated(context.Background(), order, nil); err != nil {
		t.Fatalf("order created returned error: %v", err)
	}
	if len(sender.Messages) != 1 || sender.Messages[0].To != "ops@shop.example" {
		t.Fatalf("expected operator message only, got %+v", sender.Messages)
	}
}

func TestPaymentReceivedIncludesReceipt(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := newTestNotifier(sender)
	order := sampleOrder()
	order.Correlation = &model.PaymentCorrelation{ReceiptNumber: "QKJ1ABC2DE", Amount: 100}

	if err := n.PaymentReceived(context.Background(), order); err != nil {
		t.Fatalf("payment received returned error: %v", err)
	}
	if len(sender.Messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(sender.Messages))
	}
	if !strings.Contains(sender.Messages[0].HTML, "QKJ1ABC2DE") {
		t.Fatalf("receipt missing: %s", sender.Messages[0].HTML)
	}
	if sender.Messages[0].Subject != "Payment received for order PKX1" {
		t.Fatalf("unexpected subject %q", sender.Messages[0].Subject)
	}
}

func TestStatusChangedMentionsTransition(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := newTestNotifier(sender)
	order := sampleOrder()
	order.Status = model.OrderStatusFailed

	if err := n.StatusChanged(context.Background(), order, model.OrderStatusPending); err != nil {
		t.Fatalf("status changed returned error: %v", err)
	}
	if !strings.Contains(sender.Messages[0].HTML, "from pending to failed") {
		t.Fatalf("transition missing: %s", sender.Messages[0].HTML)
	}
}

func TestAlertsGoToOperator(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := newTestNotifier(sender)
	ctx := context.Background()
	payload := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"M9"}}}`)

	unmatched := &domainErrors.UnmatchedCallbackError{MerchantRequestID: "M9", Reason: "no order matched"}
	if err := n.AlertUnmatched(ctx, unmatched, payload); err != nil {
		t.Fatalf("alert unmatched: %v", err)
	}
	writeErr := &domainErrors.ReconciliationWriteError{OrderID: "o1", Reason: "write_failed", Err: errors.New("disk full")}
	if err := n.AlertWriteFailure(ctx, writeErr, "", payload); err != nil {
		t.Fatalf("alert write failure: %v", err)
	}
	exhausted := &domainErrors.RecoveryExhaustedError{JobID: "j1", OrderID: "o1", Attempts: 5, LastError: "order not found"}
	if err := n.AlertExhausted(ctx, exhausted, payload); err != nil {
		t.Fatalf("alert exhausted: %v", err)
	}
	if err := n.AlertReview(ctx, "o1", "successful payment reported for a failed order", nil); err != nil {
		t.Fatalf("alert review: %v", err)
	}

	if len(sender.Messages) != 4 {
		t.Fatalf("expected four alerts, got %d", len(sender.Messages))
	}
	for _, msg := range sender.Messages {
		if msg.To != "ops@shop.example" {
			t.Fatalf("alert sent to %q", msg.To)
		}
	}
	if !strings.Contains(sender.Messages[0].HTML, "M9") {
		t.Fatalf("unmatched alert must carry the payload: %s", sender.Messages[0].HTML)
	}
	if !strings.Contains(sender.Messages[1].HTML, "Manual action is required") {
		t.Fatalf("write failure without job must ask for manual action: %s", sender.Messages[1].HTML)
	}
	if !strings.Contains(sender.Messages[2].HTML, "j1") {
		t.Fatalf("exhausted alert must name the job: %s", sender.Messages[2].HTML)
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	sender := &testhelpers.SenderStub{Err: testhelpers.ErrStub}
	n := newTestNotifier(sender)

	err := n.PaymentReceived(context.Background(), sampleOrder())
	if !errors.Is(err, testhelpers.ErrStub) {
		t.Fatalf("expected sender error, got %v", err)
	}
	if err := n.AlertReview(context.Background(), "o1", "reason", nil); !errors.Is(err, testhelpers.ErrStub) {
		t.Fatalf("expected sender error, got %v", err)
	}
}

func TestNoOperatorConfigured(t *testing.T) {
	sender := &testhelpers.SenderStub{}
	n := NewNotifier(sender, "", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	if err := n.AlertReview(context.Background(), "o1", "reason", nil); err != nil {
		t.Fatalf("alert review returned error: %v", err)
	}
	if len(sender.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(sender.Messages))
	}
}
