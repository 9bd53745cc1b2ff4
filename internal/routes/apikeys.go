package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/middleware"
)

// RegisterAPIKeyRoutes wires API key management. Key management is
// session-only so a leaked key cannot mint replacements.
func RegisterAPIKeyRoutes(r fiber.Router, h *apikeys.Handler) {
	group := r.Group("/keys", middleware.RequireSession())
	group.Post("/", h.Create)
	group.Get("/", h.List)
	group.Post("/rollover", h.Rollover)
	group.Delete("/:keyId", h.Revoke)
}
