package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func EnrollmentRoutes(api fiber.Router, h Handlers) {
	enrollments := api.Group("/enrollments", middleware.Protected(h.JWTSecret), middleware.RoleRequired(models.RoleStudent))
	enrollments.Post("/", h.Enrollments.Enroll)
	enrollments.Get("/my-enrollments", h.Enrollments.MyEnrollments)
	enrollments.Post("/progress", h.Enrollments.UpdateProgress)
	enrollments.Put("/progress", h.Enrollments.UpdateProgress)
	enrollments.Get("/dashboard-stats", h.Enrollments.DashboardStats)
	enrollments.Get("/status/:courseId", h.Enrollments.Status)
	enrollments.Get("/certificate/:courseId", h.Enrollments.Certificate)
}
