package handlers

import (
	"context"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// CheckoutFacade covers the storefront operations.
type CheckoutFacade interface {
	PlaceOrder(ctx context.Context, in model.CheckoutInput) (*model.CheckoutResult, error)
	OrderStatus(ctx context.Context, id string) (*model.Order, error)
}

// CallbackFacade reconciles gateway webhooks.
type CallbackFacade interface {
	HandlePaymentCallback(ctx context.Context, body []byte) error
}

// AuthFacade describes administrator authentication required by handlers.
type AuthFacade interface {
	Login(ctx context.Context, login, password string) (string, error)
	ParseToken(token string) (string, error)
}

// AdminFacade exposes manual reconciliation.
type AdminFacade interface {
	AdminOrder(ctx context.Context, id string) (*model.Order, error)
	OverrideStatus(ctx context.Context, admin, id string, to model.OrderStatus, unpay bool) (*model.Order, error)
	RetryPayment(ctx context.Context, id string) (*model.Order, error)
	RecoveryJobs(ctx context.Context, status model.RecoveryStatus, limit int) ([]model.RecoveryJob, error)
	RetryRecoveryJob(ctx context.Context, id string) (*model.RecoveryJob, error)
	DrainRecovery(ctx context.Context) (model.DrainSummary, error)
}

// HealthFacade reports readiness.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// PaymentsFacade aggregates the full set of operations used across handlers.
type PaymentsFacade interface {
	CheckoutFacade
	CallbackFacade
	AuthFacade
	AdminFacade
	HealthFacade
}
