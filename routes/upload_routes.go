package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(api fiber.Router, h Handlers) {
	uploads := api.Group("/uploads", middleware.Protected(h.JWTSecret), middleware.RoleRequired(models.RoleTeacher))
	uploads.Get("/signature", h.Uploads.Signature)
}
