package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AuthHandler issues and refreshes token pairs.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Token handles POST /token/.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, _, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tokenResponse(pair)})
}

// Refresh handles POST /token/refresh/.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tokenResponse(pair)})
}

func tokenResponse(pair *service.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		Access:           pair.Access,
		Refresh:          pair.Refresh,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}
