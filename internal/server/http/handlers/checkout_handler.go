package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/server/http/dto"
)

// CheckoutHandler manages storefront order endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Create handles POST /api/orders. The order is stored even when the
// payment request fails; the failure is reported in paymentError.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.facade.PlaceOrder(c.Request.Context(), toCheckoutInput(req))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.CheckoutResponse{
		ID:            res.Order.ID,
		Reference:     res.Order.Reference,
		Status:        string(res.Order.Status),
		Paid:          res.Order.Paid,
		Total:         res.Order.Total,
		PaymentMethod: string(res.Order.PaymentMethod),
	}
	if res.PaymentError != nil {
		resp.PaymentError = res.PaymentError.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

// Status handles GET /api/orders/:id/status.
func (h *CheckoutHandler) Status(c *gin.Context) {
	order, err := h.facade.OrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderStatusResponse{
		ID:        order.ID,
		Reference: order.Reference,
		Status:    string(order.Status),
		Paid:      order.Paid,
	})
}

func toCheckoutInput(req dto.CheckoutRequest) model.CheckoutInput {
	items := make([]model.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return model.CheckoutInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Items:        items,
		Delivery: model.Delivery{
			Location:     req.Delivery.Location,
			Address:      req.Delivery.Address,
			SelfArranged: req.Delivery.SelfArranged,
		},
		ShippingAmount: req.ShippingAmount,
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
	}
}
