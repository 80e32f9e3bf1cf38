package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UsersHandler exposes registration and self-service profile endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Register handles POST /users/register/.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// GetUser handles GET /users/:id/ and /users/me/.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := h.target(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser handles PUT and PATCH /users/:id/ and /users/me/. Every field is optional.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), caller(c), id, service.ProfileEditInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser handles DELETE /users/:id/ and /users/me/.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// target resolves the :id parameter, where "me" names the caller.
func (h *UsersHandler) target(c *fiber.Ctx) (string, error) {
	if c.Params("id") == "me" {
		user := caller(c)
		if user == nil {
			return "", apperrors.NewUnauthorized("authentication credentials were not provided")
		}
		return user.ID, nil
	}
	return pathID(c, "id", "user")
}
