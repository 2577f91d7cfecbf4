package model

// MaxOrderAmount bounds the total of a single order in whole currency units.
const MaxOrderAmount int64 = 1_000_000_000

// CheckoutItem is one requested product line.
type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=1000"`
}

// CheckoutInput is everything a customer submits at checkout.
type CheckoutInput struct {
	CustomerName   string         `json:"customerName" validate:"required"`
	Email          string         `json:"email" validate:"omitempty,email"`
	Phone          string         `json:"phone" validate:"required"`
	Items          []CheckoutItem `json:"items" validate:"min=1,max=100,dive"`
	Delivery       Delivery       `json:"delivery"`
	ShippingAmount int64          `json:"shippingAmount" validate:"gte=0,lte=1000000"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod" validate:"required,oneof=invoice mobile_money"`
}

// CheckoutResult is the placed order and the payment request failure, if any.
// A failed payment request never fails checkout.
type CheckoutResult struct {
	Order        *Order
	PaymentError error
}
