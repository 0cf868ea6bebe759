package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/service"
)

// PaymentHandler handles HTTP requests for escrow records.
type PaymentHandler struct {
	escrowService *service.EscrowService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(escrowService *service.EscrowService) *PaymentHandler {
	return &PaymentHandler{escrowService: escrowService}
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.escrowService.GetPayment(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newPaymentResponse(payment))
}

// GetTripPayment handles GET /v1/trips/:id/payment
func (h *PaymentHandler) GetTripPayment(c *gin.Context) {
	payment, err := h.escrowService.GetTripPayment(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newPaymentResponse(payment))
}
