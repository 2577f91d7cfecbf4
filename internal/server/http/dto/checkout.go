package dto

// CheckoutItemRequest is one requested product line.
type CheckoutItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// DeliveryRequest describes where the order goes.
type DeliveryRequest struct {
	Location     string `json:"location"`
	Address      string `json:"address"`
	SelfArranged bool   `json:"selfArranged"`
}

// CheckoutRequest describes the storefront checkout payload.
type CheckoutRequest struct {
	CustomerName   string                `json:"customerName"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone"`
	Items          []CheckoutItemRequest `json:"items"`
	Delivery       DeliveryRequest       `json:"delivery"`
	ShippingAmount int64                 `json:"shippingAmount"`
	PaymentMethod  string                `json:"paymentMethod"`
}

// CheckoutResponse is returned once the order is stored.
type CheckoutResponse struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Paid          bool   `json:"paid"`
	Total         int64  `json:"total"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentError  string `json:"paymentError,omitempty"`
}

// OrderStatusResponse answers the customer "check payment status" poll.
type OrderStatusResponse struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Paid      bool   `json:"paid"`
}
