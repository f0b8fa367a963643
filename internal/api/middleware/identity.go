package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/momento/internal/ws"
)

// Identity stores the engine's configured username in the request locals so
// websocket subscribers receive that user's events
func Identity(username string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(ws.LocalUsername, username)
		return c.Next()
	}
}
