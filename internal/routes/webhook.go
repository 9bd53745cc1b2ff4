package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/funding"
)

// RegisterWebhookRoutes wires the payment provider callback. The route is
// public; the handler authenticates each delivery by its HMAC signature
// over the raw body.
func RegisterWebhookRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/webhooks/paystack", h.Webhook)
}
