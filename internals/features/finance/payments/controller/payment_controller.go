package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/features/finance/payments/dto"
	"tutorku_backend/internals/features/finance/payments/service"
)

type PaymentController struct {
	Payments *service.PaymentService
}

func NewPaymentController(payments *service.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

/* =======================================================================
   Webhook (public, signature-verified)
======================================================================= */

// POST /webhooks/payment
func (h *PaymentController) Webhook(c *fiber.Ctx) error {
	// body fiber di-reuse setelah handler selesai, salin dulu
	body := append([]byte(nil), c.Body()...)

	headers := map[string]string{}
	for k, v := range c.GetReqHeaders() { // v: []string
		headers[k] = strings.Join(v, ",")
	}

	res, err := h.Payments.HandleWebhook(c.UserContext(), body, headers)
	if err != nil {
		return err
	}
	return c.JSON(dto.WebhookAck{Received: true, Duplicate: res.Duplicate})
}
