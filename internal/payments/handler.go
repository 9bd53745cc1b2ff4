package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/wallet"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a payments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	WalletNumber string `json:"wallet_number"`
	Amount       int64  `json:"amount"`
}

type transferResponse struct {
	TransactionID   string    `json:"transaction_id"`
	Amount          int64     `json:"amount"`
	RecipientWallet string    `json:"recipient_wallet_number"`
	SenderBalance   int64     `json:"sender_balance"`
	CreatedAt       time.Time `json:"created_at"`
}

// Transfer moves money from the caller's wallet to another wallet number.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Transfer(c.UserContext(), userID, req.WalletNumber, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ErrTransferFailed):
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(transferResponse{
		TransactionID:   result.Debit.ID,
		Amount:          result.Debit.Amount,
		RecipientWallet: req.WalletNumber,
		SenderBalance:   result.SenderBalance,
		CreatedAt:       result.Debit.CreatedAt,
	})
}
