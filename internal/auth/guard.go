package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Require builds a route guard that runs the authentication and role steps of the
// policy for res/act. Object gates are left to the service once the entity is loaded.
func (a *Authorizer) Require(res Resource, act Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := PrincipalFromContext(c)
		if err := a.Authorize(user, res, act, nil); err != nil {
			return err
		}
		return c.Next()
	}
}
