package model

import (
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
)

// OrderStatus describes payment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Valid reports whether status is one of the known states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPending, OrderStatusPaid, OrderStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no automatic transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// PaymentMethod selects how the customer settles the order.
type PaymentMethod string

const (
	PaymentMethodInvoice     PaymentMethod = "invoice"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
)

// Actors recorded in status history.
const (
	ActorCheckout        = "checkout"
	ActorPaymentRequest  = "payment-request"
	ActorPaymentCallback = "payment-callback"
	ActorRecoveryWorker  = "recovery-worker"
)

// LineItem is a catalog snapshot taken when the order is placed.
type LineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns price of the line.
func (i LineItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Delivery describes where the order goes.
type Delivery struct {
	Location     string `json:"location,omitempty"`
	Address      string `json:"address,omitempty"`
	SelfArranged bool   `json:"selfArranged,omitempty"`
}

// StatusEntry is one immutable record of the status history.
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changedAt"`
	ChangedBy string      `json:"changedBy"`
}

// Order is a placed order together with its payment state.
type Order struct {
	ID                    string
	Reference             string
	CustomerName          string
	Email                 string
	Phone                 string
	Items                 []LineItem
	Delivery              Delivery
	ShippingAmount        int64
	Total                 int64
	PaymentMethod         PaymentMethod
	Paid                  bool
	Status                OrderStatus
	StatusHistory         []StatusEntry
	Correlation           *PaymentCorrelation
	LastPaymentError      string
	LastNotificationError string
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewOrder builds an order in created state with a single history entry.
func NewOrder(id, reference string, at time.Time, by string) *Order {
	return &Order{
		ID:            id,
		Reference:     reference,
		Status:        OrderStatusCreated,
		StatusHistory: []StatusEntry{{Status: OrderStatusCreated, ChangedAt: at, ChangedBy: by}},
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// Consistent checks the history and paid invariants.
func (o *Order) Consistent() bool {
	if len(o.StatusHistory) == 0 || o.StatusHistory[len(o.StatusHistory)-1].Status != o.Status {
		return false
	}
	return !o.Paid || o.Status == OrderStatusPaid
}

// PaymentConfirmed reports whether the stored row reflects a settled payment.
func (o *Order) PaymentConfirmed() bool {
	return o.Paid || o.Status == OrderStatusPaid
}

func (o *Order) appendStatus(status OrderStatus, by string, at time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: status, ChangedAt: at, ChangedBy: by})
	o.UpdatedAt = at
}

// MarkPending records that a payment request is in flight.
func (o *Order) MarkPending(by string, at time.Time) error {
	if o.Status != OrderStatusCreated {
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, o.Status, OrderStatusPending)
	}
	o.appendStatus(OrderStatusPending, by, at)
	return nil
}

// MarkPaid settles the order. A created order passes through pending first.
func (o *Order) MarkPaid(by string, at time.Time) error {
	switch o.Status {
	case OrderStatusCreated:
		o.appendStatus(OrderStatusPending, by, at)
	case OrderStatusPending:
	default:
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, o.Status, OrderStatusPaid)
	}
	o.appendStatus(OrderStatusPaid, by, at)
	o.Paid = true
	o.LastPaymentError = ""
	return nil
}

// MarkFailed records a declined or cancelled payment. Never touches Paid.
func (o *Order) MarkFailed(by string, at time.Time, reason string) error {
	switch o.Status {
	case OrderStatusCreated:
		o.appendStatus(OrderStatusPending, by, at)
	case OrderStatusPending:
	default:
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, o.Status, OrderStatusFailed)
	}
	o.appendStatus(OrderStatusFailed, by, at)
	o.LastPaymentError = reason
	return nil
}

// Override applies an administrative transition. Clearing Paid requires unpay.
func (o *Order) Override(to OrderStatus, by string, at time.Time, unpay bool) error {
	if !CanOverride(o.Status, to, unpay) {
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, o.Status, to)
	}
	o.appendStatus(to, by, at)
	switch to {
	case OrderStatusPaid:
		o.Paid = true
		o.LastPaymentError = ""
	default:
		o.Paid = false
	}
	return nil
}

var overrides = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPending: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusFailed:  {OrderStatusPaid},
}

// CanOverride reports whether an administrator may move from one status to another.
func CanOverride(from, to OrderStatus, unpay bool) bool {
	if from == OrderStatusPaid {
		return unpay && to == OrderStatusFailed
	}
	for _, allowed := range overrides[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
