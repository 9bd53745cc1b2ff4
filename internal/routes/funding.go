package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/funding"
	"github.com/naira-pay/naira_pay/internal/middleware"
)

// RegisterFundingRoutes wires deposit initiation.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/deposits", middleware.RequirePermission(apikeys.PermissionDeposit), h.Deposit)
}
