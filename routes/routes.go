package routes

import (
	"github.com/anjiri1684/edutech_marketplace/handlers"
	"github.com/anjiri1684/edutech_marketplace/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	JWTSecret string

	Auth        *handlers.AuthHandler
	Courses     *handlers.CourseHandler
	Enrollments *handlers.EnrollmentHandler
	Payments    *handlers.PaymentHandler
	Teachers    *handlers.TeacherHandler
	Admin       *handlers.AdminHandler
	Uploads     *handlers.UploadHandler
	Hub         *websocket.Hub
}

func Register(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "OK"})
	})

	api := app.Group("/api")
	AuthRoutes(api, h)
	CourseRoutes(api, h)
	EnrollmentRoutes(api, h)
	PaymentRoutes(api, h)
	TeacherRoutes(api, h)
	AdminRoutes(api, h)
	UploadRoutes(api, h)

	if h.Hub != nil {
		app.Use("/ws", websocket.Upgrade)
		app.Get("/ws", h.Hub.Handler(h.JWTSecret))
	}

	app.Use(handlers.NotFound)
}
