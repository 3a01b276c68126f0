package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func TeacherRoutes(api fiber.Router, h Handlers) {
	teacher := api.Group("/teacher", middleware.Protected(h.JWTSecret), middleware.RoleRequired(models.RoleTeacher))
	teacher.Get("/profile", h.Teachers.Profile)
	teacher.Put("/profile", h.Teachers.UpdateProfile)
	teacher.Get("/earnings", h.Teachers.Earnings)
	teacher.Get("/stats", h.Teachers.Stats)
	teacher.Get("/courses", h.Teachers.Courses)
	teacher.Post("/verification-document", h.Teachers.UploadVerificationDocument)
}
