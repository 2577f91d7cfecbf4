package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/domain/repository"
)

const referenceAttempts = 3

// CheckoutUseCase places orders and initiates mobile money payments.
type CheckoutUseCase struct {
	orders      repository.OrderRepository
	catalog     ProductCatalog
	gateway     PaymentGateway
	notifier    Notifications
	validate    *validatorv10.Validate
	callbackURL string
	now         Clock
	newID       func() string
	logger      *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase. callbackURL is the absolute
// webhook address handed to the gateway.
func NewCheckoutUseCase(orders repository.OrderRepository, catalog ProductCatalog, gateway PaymentGateway,
	notifier Notifications, callbackURL string, now Clock, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{
		orders:      orders,
		catalog:     catalog,
		gateway:     gateway,
		notifier:    notifier,
		validate:    NewValidator(),
		callbackURL: callbackURL,
		now:         now,
		newID:       uuid.NewString,
		logger:      logger,
	}
}

// CreateOrder validates input, snapshots catalog prices and persists the order.
// Mobile money orders then get a payment request.
func (u *CheckoutUseCase) CreateOrder(ctx context.Context, in model.CheckoutInput) (*model.CheckoutResult, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Email = model.NormalizeEmail(in.Email)
	in.Phone = model.NormalizePhone(in.Phone)
	in.Delivery.Location = strings.TrimSpace(in.Delivery.Location)
	in.Delivery.Address = strings.TrimSpace(in.Delivery.Address)

	if err := u.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}
	if in.PaymentMethod == model.PaymentMethodMobileMoney && !model.IsGatewayPhone(in.Phone) {
		return nil, &domainErrors.ValidationError{Field: "phone", Reason: "must be a mobile number accepted by the payment gateway"}
	}

	items, subtotal, err := u.snapshot(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if in.ShippingAmount > model.MaxOrderAmount-subtotal {
		return nil, &domainErrors.ValidationError{
			Field:  "shippingAmount",
			Reason: fmt.Sprintf("order total must not exceed %d", model.MaxOrderAmount),
		}
	}

	now := u.now()
	order := model.NewOrder("", "", now, model.ActorCheckout)
	order.CustomerName = in.CustomerName
	order.Email = in.Email
	order.Phone = in.Phone
	order.Items = items
	order.Delivery = in.Delivery
	order.ShippingAmount = in.ShippingAmount
	order.Total = subtotal + in.ShippingAmount
	order.PaymentMethod = in.PaymentMethod

	if err := u.persist(ctx, order, now); err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("reference", order.Reference),
		slog.Int64("total", order.Total),
		slog.String("payment_method", string(order.PaymentMethod)))

	var paymentErr error
	if order.PaymentMethod == model.PaymentMethodMobileMoney {
		order, paymentErr = u.initiate(ctx, order)
	}

	if err := u.notifier.OrderCreated(ctx, order, paymentErr); err != nil {
		recordNotificationError(ctx, u.orders, order, err, u.logger)
	}
	return &model.CheckoutResult{Order: order, PaymentError: paymentErr}, nil
}

func (u *CheckoutUseCase) snapshot(ctx context.Context, requested []model.CheckoutItem) ([]model.LineItem, int64, error) {
	items := make([]model.LineItem, 0, len(requested))
	var subtotal int64
	for i, req := range requested {
		product, err := u.catalog.Product(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, 0, &domainErrors.ValidationError{
					Field:  fmt.Sprintf("items[%d].productId", i),
					Reason: fmt.Sprintf("unknown product %q", req.ProductID),
				}
			}
			return nil, 0, fmt.Errorf("look up product %s: %w", req.ProductID, err)
		}
		item := model.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  req.Quantity,
		}
		// Each line must fit under the cap before it is multiplied out.
		if item.UnitPrice < 0 || (item.UnitPrice > 0 && int64(item.Quantity) > (model.MaxOrderAmount-subtotal)/item.UnitPrice) {
			return nil, 0, &domainErrors.ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: fmt.Sprintf("order total must not exceed %d", model.MaxOrderAmount),
			}
		}
		subtotal += item.Subtotal()
		items = append(items, item)
	}
	return items, subtotal, nil
}

// persist stores the order, drawing a fresh id and reference on collision.
func (u *CheckoutUseCase) persist(ctx context.Context, order *model.Order, now time.Time) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		order.ID = u.newID()
		order.Reference = orderReference(now.Add(time.Duration(attempt) * time.Millisecond))
		if err = u.orders.Create(ctx, order); err == nil {
			return nil
		}
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			break
		}
	}
	return fmt.Errorf("create order: %w", err)
}

// orderReference renders the customer-facing code printed on receipts.
func orderReference(at time.Time) string {
	return "PK" + strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
}

// initiate requests payment and records the gateway correlation. On failure
// the order stays created with lastPaymentError set.
func (u *CheckoutUseCase) initiate(ctx context.Context, order *model.Order) (*model.Order, error) {
	initiation, err := u.gateway.RequestPayment(ctx, model.PaymentRequest{
		Amount:      order.Total,
		Phone:       order.Phone,
		Reference:   order.Reference,
		CallbackURL: u.callbackURL,
		Description: "Payment for order " + order.Reference,
	})
	if err != nil {
		u.logger.WarnContext(ctx, "payment request failed",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
		updated, _, werr := mutateOrder(ctx, u.orders, order, order.ID, func(o *model.Order) (bool, error) {
			o.LastPaymentError = err.Error()
			o.UpdatedAt = u.now()
			return true, nil
		})
		if werr != nil {
			u.logger.ErrorContext(ctx, "record payment error",
				slog.String("order_id", order.ID), slog.String("error", werr.Error()))
			return order, err
		}
		return updated, err
	}

	updated, _, err := mutateOrder(ctx, u.orders, order, order.ID, func(o *model.Order) (bool, error) {
		o.RecordInitiation(initiation)
		o.LastPaymentError = ""
		o.UpdatedAt = u.now()
		if o.Status == model.OrderStatusCreated {
			return true, o.MarkPending(model.ActorPaymentRequest, u.now())
		}
		return true, nil
	})
	if err != nil {
		u.logger.ErrorContext(ctx, "record payment initiation",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
		return order, fmt.Errorf("record payment initiation: %w", err)
	}
	u.logger.InfoContext(ctx, "payment requested",
		slog.String("order_id", updated.ID),
		slog.String("merchant_request_id", initiation.MerchantRequestID),
		slog.String("checkout_request_id", initiation.CheckoutRequestID))
	return updated, nil
}

// RetryPayment issues a new payment request for a mobile money order still in created.
func (u *CheckoutUseCase) RetryPayment(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != model.PaymentMethodMobileMoney {
		return nil, &domainErrors.ValidationError{Field: "paymentMethod", Reason: "order is not paid by mobile money"}
	}
	if order.Status != model.OrderStatusCreated {
		return nil, fmt.Errorf("%w: payment already requested for order in %s", domainErrors.ErrInvalidTransition, order.Status)
	}
	return u.initiate(ctx, order)
}

// GetOrder returns the order without modifying it.
func (u *CheckoutUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return u.orders.GetByID(ctx, id)
}
