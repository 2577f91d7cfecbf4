package dto

import (
	"encoding/json"
	"time"
)

// OverrideRequest asks for a manual status change. Override must be set to
// move a paid order back to failed.
type OverrideRequest struct {
	Status   string `json:"status"`
	Override bool   `json:"override"`
}

// LineItemResponse is an order line as priced at checkout.
type LineItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// StatusEntryResponse is one status history record.
type StatusEntryResponse struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy string    `json:"changedBy"`
}

// OrderResponse is the full administrative view of an order.
type OrderResponse struct {
	ID                    string                `json:"id"`
	Reference             string                `json:"reference"`
	CustomerName          string                `json:"customerName"`
	Email                 string                `json:"email,omitempty"`
	Phone                 string                `json:"phone"`
	Items                 []LineItemResponse    `json:"items"`
	Delivery              DeliveryRequest       `json:"delivery"`
	ShippingAmount        int64                 `json:"shippingAmount"`
	Total                 int64                 `json:"total"`
	PaymentMethod         string                `json:"paymentMethod"`
	Paid                  bool                  `json:"paid"`
	Status                string                `json:"status"`
	StatusHistory         []StatusEntryResponse `json:"statusHistory"`
	Correlation           json.RawMessage       `json:"paymentCorrelation,omitempty"`
	LastPaymentError      string                `json:"lastPaymentError,omitempty"`
	LastNotificationError string                `json:"lastNotificationError,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
}

// RecoveryJobResponse describes a queued deferred settlement.
type RecoveryJobResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	Reason        string          `json:"reason"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	LastError     string          `json:"lastError,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ResolvedAt    *time.Time      `json:"resolvedAt,omitempty"`
}

// DrainResponse reports one drain pass.
type DrainResponse struct {
	Claimed     int `json:"claimed"`
	Resolved    int `json:"resolved"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted"`
	Errors      int `json:"errors"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// AckResponse acknowledges a webhook delivery.
type AckResponse struct {
	OK bool `json:"ok"`
}
