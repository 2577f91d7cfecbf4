package model

import "encoding/json"

// PaymentRequest is the outbound request for a mobile money charge.
type PaymentRequest struct {
	Amount      int64
	Phone       string
	Reference   string
	CallbackURL string
	Description string
}

// PaymentInitiation carries identifiers assigned by the gateway.
type PaymentInitiation struct {
	MerchantRequestID string
	CheckoutRequestID string
	Raw               json.RawMessage
}

// PaymentCorrelation is everything exchanged with the gateway for an order.
type PaymentCorrelation struct {
	MerchantRequestID  string          `json:"merchantRequestId,omitempty"`
	CheckoutRequestID  string          `json:"checkoutRequestId,omitempty"`
	InitiationResponse json.RawMessage `json:"initiationResponse,omitempty"`
	ResultCode         *int            `json:"resultCode,omitempty"`
	ResultDesc         string          `json:"resultDesc,omitempty"`
	ReceiptNumber      string          `json:"receiptNumber,omitempty"`
	Amount             int64           `json:"amount,omitempty"`
	PhoneNumber        string          `json:"phoneNumber,omitempty"`
	TransactionDate    string          `json:"transactionDate,omitempty"`
}

// RecordInitiation stores gateway identifiers returned by a payment request.
func (o *Order) RecordInitiation(initiation *PaymentInitiation) {
	if o.Correlation == nil {
		o.Correlation = &PaymentCorrelation{}
	}
	o.Correlation.MerchantRequestID = initiation.MerchantRequestID
	o.Correlation.CheckoutRequestID = initiation.CheckoutRequestID
	o.Correlation.InitiationResponse = initiation.Raw
}

// RecordCallback merges transaction metadata delivered by a callback.
func (o *Order) RecordCallback(cb *PaymentCallback) {
	if o.Correlation == nil {
		o.Correlation = &PaymentCorrelation{}
	}
	c := o.Correlation
	if c.MerchantRequestID == "" {
		c.MerchantRequestID = cb.MerchantRequestID
	}
	if c.CheckoutRequestID == "" {
		c.CheckoutRequestID = cb.CheckoutRequestID
	}
	if cb.HasResult {
		code := cb.ResultCode
		c.ResultCode = &code
	}
	c.ResultDesc = cb.ResultDesc
	if cb.Metadata.ReceiptNumber != "" {
		c.ReceiptNumber = cb.Metadata.ReceiptNumber
	}
	if cb.Metadata.Amount != 0 {
		c.Amount = cb.Metadata.Amount
	}
	if cb.Metadata.PhoneNumber != "" {
		c.PhoneNumber = cb.Metadata.PhoneNumber
	}
	if cb.Metadata.TransactionDate != "" {
		c.TransactionDate = cb.Metadata.TransactionDate
	}
}
