package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/server/http/dto"
)

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// Order handles GET /api/admin/orders/:id.
func (h *AdminHandler) Order(c *gin.Context) {
	order, err := h.facade.AdminOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// OverrideStatus handles POST /api/admin/orders/:id/status.
func (h *AdminHandler) OverrideStatus(c *gin.Context) {
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.facade.OverrideStatus(c.Request.Context(), CurrentAdmin(c), c.Param("id"),
		model.OrderStatus(req.Status), req.Override)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// RetryPayment handles POST /api/admin/orders/:id/payment.
func (h *AdminHandler) RetryPayment(c *gin.Context) {
	order, err := h.facade.RetryPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// RecoveryJobs handles GET /api/admin/recovery-jobs.
func (h *AdminHandler) RecoveryJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	jobs, err := h.facade.RecoveryJobs(c.Request.Context(), model.RecoveryStatus(c.Query("status")), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]dto.RecoveryJobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// RetryRecoveryJob handles POST /api/admin/recovery-jobs/:id/retry.
func (h *AdminHandler) RetryRecoveryJob(c *gin.Context) {
	job, err := h.facade.RetryRecoveryJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

// Drain handles POST /api/admin/recovery/drain.
func (h *AdminHandler) Drain(c *gin.Context) {
	summary, err := h.facade.DrainRecovery(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DrainResponse{
		Claimed:     summary.Claimed,
		Resolved:    summary.Resolved,
		Rescheduled: summary.Rescheduled,
		Exhausted:   summary.Exhausted,
		Errors:      summary.Errors,
	})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.LineItemResponse, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, dto.LineItemResponse{ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	history := make([]dto.StatusEntryResponse, 0, len(order.StatusHistory))
	for _, e := range order.StatusHistory {
		history = append(history, dto.StatusEntryResponse{Status: string(e.Status), ChangedAt: e.ChangedAt, ChangedBy: e.ChangedBy})
	}
	resp := dto.OrderResponse{
		ID:           order.ID,
		Reference:    order.Reference,
		CustomerName: order.CustomerName,
		Email:        order.Email,
		Phone:        order.Phone,
		Items:        items,
		Delivery: dto.DeliveryRequest{
			Location:     order.Delivery.Location,
			Address:      order.Delivery.Address,
			SelfArranged: order.Delivery.SelfArranged,
		},
		ShippingAmount:        order.ShippingAmount,
		Total:                 order.Total,
		PaymentMethod:         string(order.PaymentMethod),
		Paid:                  order.Paid,
		Status:                string(order.Status),
		StatusHistory:         history,
		LastPaymentError:      order.LastPaymentError,
		LastNotificationError: order.LastNotificationError,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
	if order.Correlation != nil {
		if raw, err := json.Marshal(order.Correlation); err == nil {
			resp.Correlation = raw
		}
	}
	return resp
}

func toJobResponse(job *model.RecoveryJob) dto.RecoveryJobResponse {
	return dto.RecoveryJobResponse{
		ID:            job.ID,
		OrderID:       job.OrderID,
		Reason:        string(job.Reason),
		Status:        string(job.Status),
		Attempts:      job.Attempts,
		NextAttemptAt: job.NextAttemptAt,
		LastError:     job.LastError,
		Payload:       job.Payload,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		ResolvedAt:    job.ResolvedAt,
	}
}
