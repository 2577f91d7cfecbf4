package test

import (
	"context"
	"sync"

	"github.com/polkiloo/storepay/internal/adapter/notify"
	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

// GatewayStub records payment requests and answers with fixed ids.
type GatewayStub struct {
	mu        sync.Mutex
	RequestFn func(context.Context, model.PaymentRequest) (*model.PaymentInitiation, error)
	Err       error
	Requests  []model.PaymentRequest
}

// RequestPayment delegates to override or returns M1/C1 identifiers.
func (s *GatewayStub) RequestPayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentInitiation, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	s.mu.Unlock()
	if s.RequestFn != nil {
		return s.RequestFn(ctx, req)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.PaymentInitiation{
		MerchantRequestID: "M1",
		CheckoutRequestID: "C1",
		Raw:               []byte(`{"MerchantRequestID":"M1","CheckoutRequestID":"C1","ResponseCode":"0"}`),
	}, nil
}

// CatalogStub serves products from a map.
type CatalogStub struct {
	Products map[string]model.Product
	Err      error
}

// NewCatalogStub indexes products by id.
func NewCatalogStub(products ...model.Product) CatalogStub {
	s := CatalogStub{Products: make(map[string]model.Product, len(products))}
	for _, p := range products {
		s.Products[p.ID] = p
	}
	return s
}

// Product returns configured product or not found.
func (s CatalogStub) Product(_ context.Context, id string) (*model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.Products[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &p, nil
}

// SenderStub captures rendered messages.
type SenderStub struct {
	mu       sync.Mutex
	Err      error
	Messages []notify.Message
	Closed   bool
}

// Send records the message unless a failure is configured.
func (s *SenderStub) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, msg)
	return nil
}

// Close marks the sender closed.
func (s *SenderStub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// NotificationsStub counts notifications and alerts per kind.
type NotificationsStub struct {
	mu            sync.Mutex
	Err           error
	Created       []string
	Received      []string
	Changed       []string
	Unmatched     []*domainErrors.UnmatchedCallbackError
	WriteFailures []*domainErrors.ReconciliationWriteError
	Exhausted     []*domainErrors.RecoveryExhaustedError
	Reviews       []string
	Payloads      [][]byte
}

// OrderCreated records the order id.
func (s *NotificationsStub) OrderCreated(_ context.Context, order *model.Order, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created = append(s.Created, order.ID)
	return s.Err
}

// PaymentReceived records the order id.
func (s *NotificationsStub) PaymentReceived(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Received = append(s.Received, order.ID)
	return s.Err
}

// StatusChanged records the order id.
func (s *NotificationsStub) StatusChanged(_ context.Context, order *model.Order, _ model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Changed = append(s.Changed, order.ID)
	return s.Err
}

// AlertUnmatched records the alert and its payload.
func (s *NotificationsStub) AlertUnmatched(_ context.Context, cause *domainErrors.UnmatchedCallbackError, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unmatched = append(s.Unmatched, cause)
	s.Payloads = append(s.Payloads, payload)
	return s.Err
}

// AlertWriteFailure records the alert and its payload.
func (s *NotificationsStub) AlertWriteFailure(_ context.Context, cause *domainErrors.ReconciliationWriteError, _ string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteFailures = append(s.WriteFailures, cause)
	s.Payloads = append(s.Payloads, payload)
	return s.Err
}

// AlertExhausted records the alert and its payload.
func (s *NotificationsStub) AlertExhausted(_ context.Context, cause *domainErrors.RecoveryExhaustedError, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exhausted = append(s.Exhausted, cause)
	s.Payloads = append(s.Payloads, payload)
	return s.Err
}

// AlertReview records the order id.
func (s *NotificationsStub) AlertReview(_ context.Context, orderID, _ string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reviews = append(s.Reviews, orderID)
	s.Payloads = append(s.Payloads, payload)
	return s.Err
}

// ReceivedCount reports PaymentReceived calls for the order.
func (s *NotificationsStub) ReceivedCount(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.Received {
		if id == orderID {
			n++
		}
	}
	return n
}

var _ notify.Sender = (*SenderStub)(nil)
