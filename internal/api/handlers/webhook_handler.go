package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/pkg/payment"
)

type (
	WebhookHandler interface {
		StripeWebhook(c *fiber.Ctx) error
	}

	webhookHandler struct {
		paymentService payment.PaymentService
	}
)

func NewWebhookHandler(paymentService payment.PaymentService) WebhookHandler {
	return &webhookHandler{paymentService: paymentService}
}

// StripeWebhook verifies and applies a payment notification. The gateway
// retries on anything but 2xx, so only errors that a retry could fix return
// a 500.
func (h *webhookHandler) StripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("stripe-signature")

	if err := h.paymentService.HandleWebhook(c.Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
		case errors.Is(err, domain.ErrMalformedWebhook):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook handler failed"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
