package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/middleware"
	"github.com/naira-pay/naira_pay/internal/payments"
)

// RegisterPaymentRoutes wires wallet-to-wallet transfers.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/transfers", middleware.RequirePermission(apikeys.PermissionTransfer), h.Transfer)
}
