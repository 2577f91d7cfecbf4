package app

import (
	"context"

	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
	"github.com/polkiloo/storepay/internal/usecase"
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PaymentsFacade is the single entry point the HTTP layer and the worker use.
type PaymentsFacade struct {
	checkout   *usecase.CheckoutUseCase
	reconciler *usecase.Reconciler
	queue      *usecase.RecoveryQueue
	admin      *usecase.AdminUseCase
	auth       *usecase.AuthUseCase
	health     HealthChecker
}

// NewPaymentsFacade joins the use cases. The store backs Health.
func NewPaymentsFacade(checkout *usecase.CheckoutUseCase, reconciler *usecase.Reconciler, queue *usecase.RecoveryQueue,
	admin *usecase.AdminUseCase, auth *usecase.AuthUseCase, store repository.Store) *PaymentsFacade {
	return &PaymentsFacade{
		checkout:   checkout,
		reconciler: reconciler,
		queue:      queue,
		admin:      admin,
		auth:       auth,
		health:     store,
	}
}

func (f *PaymentsFacade) PlaceOrder(ctx context.Context, in model.CheckoutInput) (*model.CheckoutResult, error) {
	return f.checkout.CreateOrder(ctx, in)
}

func (f *PaymentsFacade) OrderStatus(ctx context.Context, id string) (*model.Order, error) {
	return f.checkout.GetOrder(ctx, id)
}

// HandlePaymentCallback reconciles a webhook body. Only unreadable bodies
// produce an error; every other outcome is absorbed by the reconciler.
func (f *PaymentsFacade) HandlePaymentCallback(ctx context.Context, body []byte) error {
	_, err := f.reconciler.HandleCallback(ctx, body)
	return err
}

func (f *PaymentsFacade) Login(ctx context.Context, login, password string) (string, error) {
	return f.auth.Authenticate(ctx, login, password)
}

func (f *PaymentsFacade) ParseToken(token string) (string, error) {
	return f.auth.ParseToken(token)
}

func (f *PaymentsFacade) AdminOrder(ctx context.Context, id string) (*model.Order, error) {
	return f.admin.Order(ctx, id)
}

func (f *PaymentsFacade) OverrideStatus(ctx context.Context, admin, id string, to model.OrderStatus, unpay bool) (*model.Order, error) {
	return f.admin.OverrideStatus(ctx, admin, id, to, unpay)
}

func (f *PaymentsFacade) RetryPayment(ctx context.Context, id string) (*model.Order, error) {
	return f.admin.RetryPayment(ctx, id)
}

func (f *PaymentsFacade) RecoveryJobs(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error) {
	return f.admin.RecoveryJobs(ctx, status, limit)
}

func (f *PaymentsFacade) RetryRecoveryJob(ctx context.Context, id string) (*model.RecoveryJob, error) {
	return f.admin.RetryRecoveryJob(ctx, id)
}

func (f *PaymentsFacade) DrainRecovery(ctx context.Context) (model.DrainSummary, error) {
	return f.admin.DrainRecovery(ctx)
}

func (f *PaymentsFacade) Health(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

func (f *PaymentsFacade) ClaimRecoveryJobs(ctx context.Context) ([]model.RecoveryJob, error) {
	return f.queue.ClaimDue(ctx)
}

func (f *PaymentsFacade) ProcessRecoveryJob(ctx context.Context, job model.RecoveryJob) (string, error) {
	outcome, err := f.queue.Process(ctx, job)
	return string(outcome), err
}
