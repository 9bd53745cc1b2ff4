package apikeys

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes API key HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an API key HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	ExpiresIn   int      `json:"expires_in_days"`
}

type rolloverRequest struct {
	KeyID     string `json:"key_id"`
	ExpiresIn int    `json:"expires_in_days"`
}

type keyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type issuedKeyResponse struct {
	keyResponse
	Key string `json:"key"`
}

// Create issues a new key for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req createKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	key, raw, err := h.service.Create(c.UserContext(), CreateInput{
		UserID:      userID,
		Name:        req.Name,
		Permissions: req.Permissions,
		TTL:         time.Duration(req.ExpiresIn) * 24 * time.Hour,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(issuedKeyResponse{keyResponse: toKeyResponse(key), Key: raw})
}

// List returns the user's keys without secrets.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	keys, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, toKeyResponse(key))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"keys": out})
}

// Rollover replaces the secret of an expired key.
func (h *Handler) Rollover(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req rolloverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	key, raw, err := h.service.Rollover(c.UserContext(), userID, req.KeyID, time.Duration(req.ExpiresIn)*24*time.Hour)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "api key not found")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(issuedKeyResponse{keyResponse: toKeyResponse(key), Key: raw})
}

// Revoke disables a key.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	keyID := c.Params("keyId")
	if err := h.service.Revoke(c.UserContext(), userID, keyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "api key not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"revoked": true})
}

func toKeyResponse(key Key) keyResponse {
	return keyResponse{
		ID:          key.ID,
		Name:        key.Name,
		Permissions: key.Permissions,
		ExpiresAt:   key.ExpiresAt,
		RevokedAt:   key.RevokedAt,
		CreatedAt:   key.CreatedAt,
	}
}
