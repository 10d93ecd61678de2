package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusloop/assess-api/internal/service"
)

// Actor builds the acting identity from the authenticated request. Handlers
// pass it explicitly into every state-changing service call.
func Actor(c *fiber.Ctx) service.ActivityActor {
	actor := service.ActivityActor{}

	if value := c.Locals("user_id"); value != nil {
		if id, ok := value.(uint); ok {
			actor.ID = id
		}
	}

	actor.Role = normalizeRoleValue(c.Locals("user_role"))

	return actor
}
