package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/funding"
	"github.com/naira-pay/naira_pay/internal/identity"
	"github.com/naira-pay/naira_pay/internal/middleware"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

// RegisterWalletRoutes exposes the caller's wallet, balance and history.
func RegisterWalletRoutes(r fiber.Router, wallets wallet.Repository, users identity.Repository, fundingHandler *funding.Handler) {
	read := middleware.RequirePermission(apikeys.PermissionRead)

	r.Get("/wallet", read, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := users.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		w, err := wallets.GetByOwner(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"email":      user.Email,
				"name":       user.Name,
				"created_at": user.CreatedAt,
			},
			"wallet": fiber.Map{
				"id":            w.ID,
				"wallet_number": w.WalletNumber,
				"balance":       w.Balance,
				"created_at":    w.CreatedAt,
			},
		})
	})

	r.Get("/wallet/balance", read, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		w, err := wallets.GetByOwner(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"wallet_number": w.WalletNumber,
			"balance":       w.Balance,
		})
	})

	r.Get("/transactions", read, fundingHandler.Transactions)
	r.Get("/transactions/:reference", read, fundingHandler.DepositStatus)
}
