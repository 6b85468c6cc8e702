package routes

import (
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/gofiber/fiber/v2"
)

// Setup mounts the REST API under /api/v1 and the notification socket at /ws.
func Setup(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	AuthRoutes(api, h)
	CourseRoutes(api, h)
	ProgressRoutes(api, h)
	BillingRoutes(api, h)
	AdminRoutes(api, h)

	app.Use("/ws", websocket.Upgrade())
	app.Get("/ws", h.Hub.Handler(h.Config.JWTSecret))
}
