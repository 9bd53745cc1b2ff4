package funding

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/paystack"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

// Handler exposes the deposit endpoints and the provider webhook.
type Handler struct {
	service *Service
	gateway paystack.Gateway
	logger  *slog.Logger
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service, gateway paystack.Gateway, logger *slog.Logger) *Handler {
	return &Handler{service: service, gateway: gateway, logger: logger}
}

// Deposit opens a checkout session crediting the caller's wallet once paid.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	checkout, err := h.service.InitiateDeposit(c.UserContext(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, paystack.ErrGateway):
			return fiber.NewError(http.StatusBadGateway, "payment provider unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	status := http.StatusCreated
	if checkout.Reused {
		status = http.StatusOK
	}
	return c.Status(status).JSON(checkoutResponse{
		Reference:        checkout.Reference,
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Amount:           checkout.Amount,
		Status:           string(checkout.Status),
		Reused:           checkout.Reused,
	})
}

// DepositStatus reports a deposit's state, refreshing from the provider
// while it is still pending.
func (h *Handler) DepositStatus(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reference := c.Params("reference")

	result, err := h.service.DepositStatus(c.UserContext(), userID, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction":     toTransactionResponse(result.Transaction),
		"gateway_checked": result.GatewayChecked,
	})
}

// Transactions lists the caller's wallet history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	txns, err := h.service.Transactions(c.UserContext(), userID, limit, offset)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionResponse(txn))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}

// Webhook receives provider events. The HMAC signature is checked over the
// exact raw body before anything is parsed; after that the endpoint always
// acknowledges with 200 so the provider stops retrying, and processing
// failures are logged instead of surfaced.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get(paystack.SignatureHeader)
	if !h.gateway.VerifySignature(payload, signature) {
		h.logger.Warn("webhook signature rejected", slog.Int("payload_bytes", len(payload)))
		return fiber.NewError(http.StatusUnauthorized, "invalid signature")
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("webhook payload unreadable", slog.Any("error", err))
		return c.SendStatus(http.StatusOK)
	}

	if event.Event != paystack.EventChargeSuccess {
		h.logger.Info("webhook event ignored", slog.String("event", event.Event))
		return c.SendStatus(http.StatusOK)
	}

	paidAt := time.Now().UTC()
	if event.Data.PaidAt != "" {
		if parsed, err := time.Parse(time.RFC3339, event.Data.PaidAt); err == nil {
			paidAt = parsed
		}
	}

	if err := h.service.ReconcileDeposit(c.UserContext(), event.Data.Reference, event.Data.Amount, paidAt); err != nil {
		h.logger.Error("webhook reconciliation failed",
			slog.String("reference", event.Data.Reference),
			slog.Any("error", err),
		)
	}
	return c.SendStatus(http.StatusOK)
}
