package usecase

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/storepay/internal/domain/model"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	now        time.Time
	orders     *testhelpers.OrderRepositoryStub
	jobs       *testhelpers.RecoveryRepositoryStub
	notifier   *testhelpers.NotificationsStub
	gateway    *testhelpers.GatewayStub
	catalog    testhelpers.CatalogStub
	settlement *Settlement
	queue      *RecoveryQueue
	reconciler *Reconciler
	checkout   *CheckoutUseCase
	admin      *AdminUseCase
}

func testPolicy() RecoveryPolicy {
	return RecoveryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  10 * time.Minute,
		LeaseTTL:    2 * time.Minute,
		BatchSize:   10,
	}
}

func newFixture(t *testing.T, orders ...*model.Order) *fixture {
	t.Helper()
	f := &fixture{
		now:      fixedNow,
		orders:   testhelpers.NewOrderRepositoryStub(orders...),
		jobs:     testhelpers.NewRecoveryRepositoryStub(),
		notifier: &testhelpers.NotificationsStub{},
		gateway:  &testhelpers.GatewayStub{},
		catalog: testhelpers.NewCatalogStub(
			model.Product{ID: "p1", Name: "Kikoy wrap", Price: 40},
			model.Product{ID: "p2", Name: "Sisal basket", Price: 10},
		),
	}
	clock := func() time.Time { return f.now }
	logger := discardLogger()
	f.settlement = NewSettlement(f.orders, clock, logger)
	f.queue = NewRecoveryQueue(f.jobs, f.orders, f.settlement, f.notifier, testPolicy(), clock, logger)
	f.reconciler = NewReconciler(f.orders, f.settlement, f.queue, f.notifier, logger)
	f.checkout = NewCheckoutUseCase(f.orders, f.catalog, f.gateway, f.notifier,
		"https://shop.example"+CallbackPath, clock, logger)
	f.admin = NewAdminUseCase(f.orders, f.checkout, f.queue, f.notifier, clock, logger)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// pendingOrder is a mobile money order awaiting its callback.
func pendingOrder(id, reference, phone, merchantID, checkoutID string) *model.Order {
	at := fixedNow.Add(-time.Hour)
	o := model.NewOrder(id, reference, at, model.ActorCheckout)
	o.CustomerName = "Wanjiru"
	o.Email = "wanjiru@example.com"
	o.Phone = phone
	o.Total = 100
	o.PaymentMethod = model.PaymentMethodMobileMoney
	if merchantID != "" || checkoutID != "" {
		o.RecordInitiation(&model.PaymentInitiation{MerchantRequestID: merchantID, CheckoutRequestID: checkoutID})
		_ = o.MarkPending(model.ActorPaymentRequest, at)
	}
	return o
}

// stkBody renders a gateway webhook. A nil code omits ResultCode and meta
// holds alternating metadata names and values.
func stkBody(t *testing.T, merchantID, checkoutID string, code any, desc string, meta ...any) []byte {
	t.Helper()
	cb := map[string]any{}
	if merchantID != "" {
		cb["MerchantRequestID"] = merchantID
	}
	if checkoutID != "" {
		cb["CheckoutRequestID"] = checkoutID
	}
	if code != nil {
		cb["ResultCode"] = code
	}
	if desc != "" {
		cb["ResultDesc"] = desc
	}
	if len(meta) > 0 {
		items := make([]map[string]any, 0, len(meta)/2)
		for i := 0; i+1 < len(meta); i += 2 {
			items = append(items, map[string]any{"Name": meta[i], "Value": meta[i+1]})
		}
		cb["CallbackMetadata"] = map[string]any{"Item": items}
	}
	body, err := json.Marshal(map[string]any{"Body": map[string]any{"stkCallback": cb}})
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}
	return body
}

func historyStatuses(o *model.Order) []model.OrderStatus {
	out := make([]model.OrderStatus, 0, len(o.StatusHistory))
	for _, e := range o.StatusHistory {
		out = append(out, e.Status)
	}
	return out
}

func equalStatuses(got []model.OrderStatus, want ...model.OrderStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
