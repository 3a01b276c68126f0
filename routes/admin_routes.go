package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(api fiber.Router, h Handlers) {
	admin := api.Group("/admin", middleware.Protected(h.JWTSecret), middleware.RoleRequired(models.RoleAdmin))
	admin.Get("/teachers", h.Admin.ListTeachers)
	admin.Patch("/teachers/:id/verification", h.Admin.SetVerification)
}
