package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// UserLookup is the slice of the user repository the middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthMiddleware validates bearer tokens and loads the calling user.
type AuthMiddleware struct {
	tokens *TokenManager
	users  UserLookup
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The user row is re-read on
// every request so role and active changes apply immediately.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("authentication credentials were not provided")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1], TokenTypeAccess)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("user is inactive")
	}

	c.Locals(principalKey, user)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated user.
func PrincipalFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// SetPrincipal stores user as the authenticated caller.
func SetPrincipal(c *fiber.Ctx, user *domain.User) {
	c.Locals(principalKey, user)
}
