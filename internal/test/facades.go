package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// CheckoutFacadeStub provides controllable behaviour for storefront endpoints.
type CheckoutFacadeStub struct {
	PlaceFn  func(context.Context, model.CheckoutInput) (*model.CheckoutResult, error)
	StatusFn func(context.Context, string) (*model.Order, error)
}

// PlaceOrder delegates to provided function or returns a pending order.
func (s CheckoutFacadeStub) PlaceOrder(ctx context.Context, in model.CheckoutInput) (*model.CheckoutResult, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, in)
	}
	order := model.NewOrder("o1", "PK1", time.Unix(0, 0).UTC(), model.ActorCheckout)
	order.CustomerName = in.CustomerName
	order.PaymentMethod = in.PaymentMethod
	order.Total = 100
	_ = order.MarkPending(model.ActorPaymentRequest, time.Unix(0, 0).UTC())
	return &model.CheckoutResult{Order: order}, nil
}

// OrderStatus returns configured order or a pending one.
func (s CheckoutFacadeStub) OrderStatus(ctx context.Context, id string) (*model.Order, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, id)
	}
	order := model.NewOrder(id, "PK1", time.Unix(0, 0).UTC(), model.ActorCheckout)
	return order, nil
}

// CallbackFacadeStub records webhook bodies.
type CallbackFacadeStub struct {
	HandleFn func(context.Context, []byte) error
	mu       sync.Mutex
	Bodies   [][]byte
}

// HandlePaymentCallback stores body and delegates to override.
func (s *CallbackFacadeStub) HandlePaymentCallback(ctx context.Context, body []byte) error {
	s.mu.Lock()
	s.Bodies = append(s.Bodies, append([]byte(nil), body...))
	s.mu.Unlock()
	if s.HandleFn != nil {
		return s.HandleFn(ctx, body)
	}
	return nil
}

// AuthFacadeStub simulates administrator authentication.
type AuthFacadeStub struct {
	LoginFn func(context.Context, string, string) (string, error)
	ParseFn func(string) (string, error)
}

// Login returns a fixed token unless overridden.
func (s AuthFacadeStub) Login(ctx context.Context, login, password string) (string, error) {
	if s.LoginFn != nil {
		return s.LoginFn(ctx, login, password)
	}
	return "token", nil
}

// ParseToken resolves every token to the admin login unless overridden.
func (s AuthFacadeStub) ParseToken(token string) (string, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return "admin", nil
}

// AdminFacadeStub simulates operator endpoints.
type AdminFacadeStub struct {
	OrderFn    func(context.Context, string) (*model.Order, error)
	OverrideFn func(context.Context, string, string, model.OrderStatus, bool) (*model.Order, error)
	RetryPayFn func(context.Context, string) (*model.Order, error)
	JobsFn     func(context.Context, model.RecoveryStatus, int) ([]model.RecoveryJob, error)
	RetryJobFn func(context.Context, string) (*model.RecoveryJob, error)
	DrainFn    func(context.Context) (model.DrainSummary, error)
	HealthErr  error
}

// AdminOrder returns configured order or a created one.
func (s AdminFacadeStub) AdminOrder(ctx context.Context, id string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return model.NewOrder(id, "PK1", time.Unix(0, 0).UTC(), model.ActorCheckout), nil
}

// OverrideStatus delegates to override or applies the transition to a created order.
func (s AdminFacadeStub) OverrideStatus(ctx context.Context, admin, id string, to model.OrderStatus, unpay bool) (*model.Order, error) {
	if s.OverrideFn != nil {
		return s.OverrideFn(ctx, admin, id, to, unpay)
	}
	order := model.NewOrder(id, "PK1", time.Unix(0, 0).UTC(), model.ActorCheckout)
	if err := order.Override(to, "admin:"+admin, time.Unix(1, 0).UTC(), unpay); err != nil {
		return nil, err
	}
	return order, nil
}

// RetryPayment delegates to override or returns a pending order.
func (s AdminFacadeStub) RetryPayment(ctx context.Context, id string) (*model.Order, error) {
	if s.RetryPayFn != nil {
		return s.RetryPayFn(ctx, id)
	}
	order := model.NewOrder(id, "PK1", time.Unix(0, 0).UTC(), model.ActorCheckout)
	_ = order.MarkPending(model.ActorPaymentRequest, time.Unix(1, 0).UTC())
	return order, nil
}

// RecoveryJobs returns configured jobs or a single pending job.
func (s AdminFacadeStub) RecoveryJobs(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	if s.JobsFn != nil {
		return s.JobsFn(ctx, status, limit)
	}
	return []model.RecoveryJob{{ID: "j1", OrderID: "o1", Status: model.RecoveryStatusPending, Reason: model.RecoveryReasonWriteFailed}}, nil
}

// RetryRecoveryJob returns configured job or a pending one.
func (s AdminFacadeStub) RetryRecoveryJob(ctx context.Context, id string) (*model.RecoveryJob, error) {
	if s.RetryJobFn != nil {
		return s.RetryJobFn(ctx, id)
	}
	return &model.RecoveryJob{ID: id, OrderID: "o1", Status: model.RecoveryStatusPending}, nil
}

// DrainRecovery returns configured summary or an empty one.
func (s AdminFacadeStub) DrainRecovery(ctx context.Context) (model.DrainSummary, error) {
	if s.DrainFn != nil {
		return s.DrainFn(ctx)
	}
	return model.DrainSummary{}, nil
}

// Health reports the configured health error.
func (s AdminFacadeStub) Health(context.Context) error {
	return s.HealthErr
}

// PaymentsFacadeStub aggregates all handler facades.
type PaymentsFacadeStub struct {
	CheckoutFacadeStub
	*CallbackFacadeStub
	AuthFacadeStub
	AdminFacadeStub
}

// NewPaymentsFacadeStub returns an aggregate stub with default behaviour.
func NewPaymentsFacadeStub() PaymentsFacadeStub {
	return PaymentsFacadeStub{CallbackFacadeStub: &CallbackFacadeStub{}}
}

// WorkerFacadeStub mimics worker interactions with the recovery queue.
type WorkerFacadeStub struct {
	Batches    [][]model.RecoveryJob
	ClaimFn    func(context.Context) ([]model.RecoveryJob, error)
	ProcessFn  func(context.Context, model.RecoveryJob) (string, error)
	Processed  []string
	mu         sync.Mutex
	claimCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// ClaimCalls reports how many claims were made.
func (s *WorkerFacadeStub) ClaimCalls() int {
	return int(atomic.LoadInt32(&s.claimCalls))
}

// ClaimRecoveryJobs returns batches from configured queue.
func (s *WorkerFacadeStub) ClaimRecoveryJobs(ctx context.Context) ([]model.RecoveryJob, error) {
	call := atomic.AddInt32(&s.claimCalls, 1)
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx)
	}
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ProcessRecoveryJob records processed job ids.
func (s *WorkerFacadeStub) ProcessRecoveryJob(ctx context.Context, job model.RecoveryJob) (string, error) {
	if s.ProcessFn != nil {
		return s.ProcessFn(ctx, job)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed = append(s.Processed, job.ID)
	return "resolved", nil
}
