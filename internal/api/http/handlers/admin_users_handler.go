package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminUsersHandler exposes directory management and user statistics.
type AdminUsersHandler struct {
	users *service.UserService
	pages config.PaginationConfig
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(userService *service.UserService, pages config.PaginationConfig) *AdminUsersHandler {
	return &AdminUsersHandler{users: userService, pages: pages}
}

// ListUsers GET /admin/users/.
func (h *AdminUsersHandler) ListUsers(c *fiber.Ctx) error {
	q := service.UserQuery{
		Search:   optionalQuery(c, "search"),
		Ordering: c.Query("ordering"),
	}
	if raw := optionalQuery(c, "role"); raw != nil {
		role := domain.Role(*raw)
		if !role.Valid() {
			return apperrors.NewFieldError("role", "role must be one of [USER SUPPORT ADMIN]")
		}
		q.Role = &role
	}
	if raw := optionalQuery(c, "is_active"); raw != nil {
		active, err := strconv.ParseBool(*raw)
		if err != nil {
			return apperrors.NewFieldError("is_active", "is_active must be true or false")
		}
		q.IsActive = &active
	}
	page := parsePage(c, h.pages)
	q.Limit, q.Offset = page.Limit(), page.Offset()

	users, total, err := h.users.AdminList(c.UserContext(), caller(c), q)
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(users, dto.NewAdminUserResponse), page, total)
}

// CreateUser POST /admin/users/.
func (h *AdminUsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.AdminUserCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.AdminCreate(c.UserContext(), caller(c), service.AdminUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAdminUserResponse(user)})
}

// GetUser GET /admin/users/:id/.
func (h *AdminUsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "user")
	if err != nil {
		return err
	}
	user, err := h.users.AdminGet(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminUserResponse(user)})
}

// ReplaceUser PUT /admin/users/:id/. Role is mandatory.
func (h *AdminUsersHandler) ReplaceUser(c *fiber.Ctx) error {
	return h.update(c, true)
}

// PatchUser PATCH /admin/users/:id/.
func (h *AdminUsersHandler) PatchUser(c *fiber.Ctx) error {
	return h.update(c, false)
}

func (h *AdminUsersHandler) update(c *fiber.Ctx, requireRole bool) error {
	id, err := pathID(c, "id", "user")
	if err != nil {
		return err
	}
	var req dto.AdminUserUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if requireRole && req.Role == nil {
		return apperrors.NewFieldError("role", "role is required")
	}
	input := service.AdminUserEditInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	user, err := h.users.AdminUpdate(c.UserContext(), caller(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminUserResponse(user)})
}

// DeleteUser DELETE /admin/users/:id/.
func (h *AdminUsersHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.users.AdminDelete(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ActiveCount GET /admin/users/active_count/.
func (h *AdminUsersHandler) ActiveCount(c *fiber.Ctx) error {
	counts, err := h.users.ActiveCount(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"active": counts.Active, "inactive": counts.Inactive})
}

// RegisteredCount POST /admin/users/registered_count/.
func (h *AdminUsersHandler) RegisteredCount(c *fiber.Ctx) error {
	var req dto.RegisteredCountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	start, err := parseInstant("start_date", req.StartDate, false)
	if err != nil {
		return err
	}
	end, err := parseInstant("end_date", req.EndDate, true)
	if err != nil {
		return err
	}
	total, err := h.users.RegisteredCount(c.UserContext(), caller(c), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"registered": total})
}

// RolesCount GET /admin/users/roles_count/.
func (h *AdminUsersHandler) RolesCount(c *fiber.Ctx) error {
	counts, err := h.users.RolesCount(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	out := fiber.Map{}
	for _, role := range domain.Roles {
		out[string(role)] = counts[role]
	}
	return c.JSON(out)
}
