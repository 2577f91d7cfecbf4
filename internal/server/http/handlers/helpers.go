package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/server/http/dto"
	"github.com/polkiloo/storepay/internal/server/http/middleware"
)

// CurrentAdmin extracts the authenticated admin login from context.
func CurrentAdmin(c *gin.Context) string {
	return c.GetString(middleware.AdminContextKey)
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var validation *domainErrors.ValidationError
	var gateway *domainErrors.GatewayError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, domainErrors.ErrInvalidTransition), errors.Is(err, domainErrors.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
	case errors.As(err, &gateway):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: gateway.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: message})
}
