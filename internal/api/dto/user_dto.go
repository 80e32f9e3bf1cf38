package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenRequest payload for POST /token/.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenRefreshRequest payload for POST /token/refresh/.
type TokenRefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// TokenResponse standard response for auth endpoints.
type TokenResponse struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// ProfileUpdateRequest payload for self-service PUT and PATCH.
type ProfileUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,max=150"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
}

// AdminUserCreateRequest payload for POST /admin/users/.
type AdminUserCreateRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=USER SUPPORT ADMIN"`
	IsActive *bool  `json:"is_active"`
}

// AdminUserUpdateRequest payload for admin PUT and PATCH. PUT additionally requires
// role, checked by the handler.
type AdminUserUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,max=150"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role" validate:"omitempty,oneof=USER SUPPORT ADMIN"`
	IsActive *bool   `json:"is_active"`
}

// RegisteredCountRequest payload for POST /admin/users/registered_count/.
type RegisteredCountRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// UserResponse is the public profile view.
type UserResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       domain.Role `json:"role"`
	DateJoined time.Time   `json:"date_joined"`
	IsActive   bool        `json:"is_active"`
}

// AdminUserResponse adds the derived flags and last login.
type AdminUserResponse struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	DateJoined  time.Time   `json:"date_joined"`
	IsActive    bool        `json:"is_active"`
	LastLogin   *time.Time  `json:"last_login"`
}

// NewUserResponse projects u for its owner.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		DateJoined: u.DateJoined,
		IsActive:   u.IsActive,
	}
}

// NewAdminUserResponse projects u for administrators.
func NewAdminUserResponse(u *domain.User) AdminUserResponse {
	return AdminUserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		IsStaff:     u.IsStaff(),
		IsSuperuser: u.IsSuperuser(),
		DateJoined:  u.DateJoined,
		IsActive:    u.IsActive,
		LastLogin:   u.LastLogin,
	}
}
