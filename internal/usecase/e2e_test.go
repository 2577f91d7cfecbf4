package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
	"github.com/polkiloo/storepay/internal/storage/sqlite"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

// flakyOrders fails the next failNext updates before delegating.
type flakyOrders struct {
	repository.OrderRepository
	failNext atomic.Int32
}

func (f *flakyOrders) Update(ctx context.Context, order *model.Order) error {
	if f.failNext.Add(-1) >= 0 {
		return errors.New("database is locked")
	}
	f.failNext.Store(0)
	return f.OrderRepository.Update(ctx, order)
}

type shop struct {
	store      *sqlite.Storage
	orders     *flakyOrders
	notifier   *testhelpers.NotificationsStub
	queue      *RecoveryQueue
	reconciler *Reconciler
	checkout   *CheckoutUseCase
}

func newShop(t *testing.T) *shop {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()
	st, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "shop.db"), logger)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Migrate(ctx))

	s := &shop{
		store:    st,
		orders:   &flakyOrders{OrderRepository: st.Orders()},
		notifier: &testhelpers.NotificationsStub{},
	}
	clock := func() time.Time { return fixedNow }
	catalog := testhelpers.NewCatalogStub(
		model.Product{ID: "p1", Name: "Kikoy wrap", Price: 40},
		model.Product{ID: "p2", Name: "Sisal basket", Price: 10},
	)
	settlement := NewSettlement(s.orders, clock, logger)
	s.queue = NewRecoveryQueue(st.RecoveryJobs(), s.orders, settlement, s.notifier, testPolicy(), clock, logger)
	s.reconciler = NewReconciler(s.orders, settlement, s.queue, s.notifier, logger)
	s.checkout = NewCheckoutUseCase(s.orders, catalog, &testhelpers.GatewayStub{}, s.notifier,
		"https://shop.example"+CallbackPath, clock, logger)
	return s
}

func (s *shop) placeOrder(t *testing.T) *model.Order {
	t.Helper()
	res, err := s.checkout.CreateOrder(context.Background(), validCheckout())
	require.NoError(t, err)
	require.NoError(t, res.PaymentError)
	require.Equal(t, int64(100), res.Order.Total)
	require.Equal(t, model.OrderStatusPending, res.Order.Status)
	return res.Order
}

func (s *shop) stored(t *testing.T, id string) *model.Order {
	t.Helper()
	order, err := s.store.Orders().GetByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func TestCheckoutToPaidOverSQLite(t *testing.T) {
	s := newShop(t)
	order := s.placeOrder(t)

	body := stkBody(t, "M1", "C1", 0, "The service request is processed successfully.",
		"Amount", 100, "MpesaReceiptNumber", "QKJ1ABC2DE", "PhoneNumber", 254712345678)
	res, err := s.reconciler.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, CallbackPaid, res.Outcome)
	assert.Equal(t, MatchCorrelation, res.MatchedBy)

	stored := s.stored(t, order.ID)
	assert.True(t, stored.Paid)
	assert.Equal(t, model.OrderStatusPaid, stored.Status)
	assert.True(t, equalStatuses(historyStatuses(stored),
		model.OrderStatusCreated, model.OrderStatusPending, model.OrderStatusPaid))
	require.NotNil(t, stored.Correlation)
	assert.Equal(t, "QKJ1ABC2DE", stored.Correlation.ReceiptNumber)
	assert.Equal(t, 1, s.notifier.ReceivedCount(order.ID))
}

func TestCheckoutToFailedOverSQLite(t *testing.T) {
	s := newShop(t)
	order := s.placeOrder(t)

	res, err := s.reconciler.HandleCallback(context.Background(),
		stkBody(t, "M1", "C1", 1032, "Request cancelled by user"))
	require.NoError(t, err)
	assert.Equal(t, CallbackFailed, res.Outcome)

	stored := s.stored(t, order.ID)
	assert.False(t, stored.Paid)
	assert.Equal(t, model.OrderStatusFailed, stored.Status)
	assert.Equal(t, "Request cancelled by user", stored.LastPaymentError)
	assert.Zero(t, s.notifier.ReceivedCount(order.ID))
}

func TestRecoveryConvergesOverSQLite(t *testing.T) {
	s := newShop(t)
	order := s.placeOrder(t)
	ctx := context.Background()

	s.orders.failNext.Store(1)
	res, err := s.reconciler.HandleCallback(ctx, stkBody(t, "M1", "C1", 0, "ok"))
	require.NoError(t, err)
	require.Equal(t, CallbackDeferred, res.Outcome)
	require.NotEmpty(t, res.JobID)

	pending := s.stored(t, order.ID)
	assert.False(t, pending.Paid)
	assert.NotEmpty(t, pending.LastPaymentError)
	assert.Len(t, s.notifier.WriteFailures, 1)

	summary, err := s.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DrainSummary{Claimed: 1, Resolved: 1}, summary)

	paid := s.stored(t, order.ID)
	assert.True(t, paid.Paid)
	assert.Empty(t, paid.LastPaymentError)
	assert.Equal(t, 1, s.notifier.ReceivedCount(order.ID))

	job, err := s.store.RecoveryJobs().GetByID(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.RecoveryStatusResolved, job.Status)

	again, err := s.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Claimed)
}

func TestConcurrentDuplicateCallbacksOverSQLite(t *testing.T) {
	s := newShop(t)
	order := s.placeOrder(t)
	body := stkBody(t, "M1", "C1", 0, "ok", "Amount", 100)

	const deliveries = 8
	var wg sync.WaitGroup
	outcomes := make([]CallbackOutcome, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.reconciler.HandleCallback(context.Background(), body)
			errs[i] = err
			if res != nil {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	paid := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		switch outcomes[i] {
		case CallbackPaid:
			paid++
		case CallbackAlreadyPaid:
		default:
			t.Fatalf("unexpected outcome %s", outcomes[i])
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, s.notifier.ReceivedCount(order.ID))

	stored := s.stored(t, order.ID)
	assert.True(t, equalStatuses(historyStatuses(stored),
		model.OrderStatusCreated, model.OrderStatusPending, model.OrderStatusPaid))
}
