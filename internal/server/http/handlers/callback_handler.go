package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/server/http/dto"
)

const defaultCallbackTimeout = 15 * time.Second

// CallbackHandler receives gateway payment webhooks.
type CallbackHandler struct {
	facade  CallbackFacade
	timeout time.Duration
	logger  *slog.Logger
}

// NewCallbackHandler constructs CallbackHandler.
func NewCallbackHandler(facade CallbackFacade, timeout time.Duration, logger *slog.Logger) *CallbackHandler {
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	return &CallbackHandler{facade: facade, timeout: timeout, logger: logger}
}

// Handle serves POST /api/payments/callback. Only unreadable bodies are
// rejected; every other outcome is acknowledged so the gateway stops
// redelivering.
func (h *CallbackHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "unreadable request body")
		return
	}

	// A gateway disconnect must not abort a half-applied settlement.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	if err := h.facade.HandlePaymentCallback(ctx, body); err != nil {
		if errors.Is(err, domainErrors.ErrMalformedPayload) {
			badRequest(c, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "payment callback handling failed", slog.String("error", err.Error()))
	}
	c.JSON(http.StatusOK, dto.AckResponse{OK: true})
}
