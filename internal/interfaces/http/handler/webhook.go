package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
)

// SignatureHeader carries the gateway's hex HMAC-SHA256 over the raw body
const SignatureHeader = "X-Signature"

// WebhookHandler handles payment gateway webhook deliveries
type WebhookHandler struct {
	BaseHandler
	webhookService *appinvoicing.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *appinvoicing.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// HandlePayment godoc
// @ID           handlePaymentWebhook
// @Summary      Receive a payment gateway event
// @Description  Verifies the signature over the raw body and reconciles
// @Description  payment.captured events against open invoices. Unknown event
// @Description  types, duplicates and orphans are acknowledged with success
// @Description  so the gateway stops redelivering.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Signature header string true "Hex HMAC-SHA256 of the request body"
// @Success      200 {object} dto.Response{data=appinvoicing.WebhookResult}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /webhooks/payment-handler [post]
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	signature := c.GetHeader(SignatureHeader)

	result, err := h.webhookService.Process(c.Request.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, appinvoicing.ErrWebhookSignature):
			h.BadRequest(c, "Signature verification failed")
		case errors.Is(err, appinvoicing.ErrWebhookPayload):
			h.BadRequest(c, "Invalid event payload")
		default:
			// Any reconciliation failure, including a lost optimistic lock
			// against a concurrent status change, answers 500 so the
			// gateway redelivers. The retry then resolves as a duplicate
			// or reconciles cleanly.
			h.InternalError(c, "Failed to process event")
		}
		return
	}

	h.Success(c, result)
}
