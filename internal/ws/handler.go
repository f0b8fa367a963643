package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LocalUsername is the fiber local holding the subscriber's username
const LocalUsername = "username"

// Handler upgrades the connection and subscribes it to the events of the
// username found in LocalUsername. Connections without one are closed.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		username, _ := conn.Locals(LocalUsername).(string)
		if username == "" {
			_ = conn.Close()
			return
		}

		client := newClient(hub, conn, username)
		select {
		case hub.register <- client:
		case <-hub.done:
			// hub already shut down
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects plain HTTP requests with 426
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals("allowed", true)
		return c.Next()
	}
}
