package usecase

import (
	"context"
	"time"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

// PaymentGateway issues mobile money payment requests.
type PaymentGateway interface {
	RequestPayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentInitiation, error)
}

// ProductCatalog resolves products for price snapshots.
type ProductCatalog interface {
	Product(ctx context.Context, id string) (*model.Product, error)
}

// Notifications delivers customer notifications and operator alerts.
type Notifications interface {
	OrderCreated(ctx context.Context, order *model.Order, paymentErr error) error
	PaymentReceived(ctx context.Context, order *model.Order) error
	StatusChanged(ctx context.Context, order *model.Order, from model.OrderStatus) error
	AlertUnmatched(ctx context.Context, cause *domainErrors.UnmatchedCallbackError, payload []byte) error
	AlertWriteFailure(ctx context.Context, cause *domainErrors.ReconciliationWriteError, jobID string, payload []byte) error
	AlertExhausted(ctx context.Context, cause *domainErrors.RecoveryExhaustedError, payload []byte) error
	AlertReview(ctx context.Context, orderID, reason string, payload []byte) error
}

// Clock returns the current time.
type Clock func() time.Time

// SystemClock reports wall-clock time in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
