package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func CourseRoutes(api fiber.Router, h Handlers) {
	courses := api.Group("/courses")
	courses.Get("/", h.Courses.List)
	courses.Get("/:id", h.Courses.Get)

	teacher := courses.Group("", middleware.Protected(h.JWTSecret), middleware.RoleRequired(models.RoleTeacher))
	teacher.Post("/", h.Courses.Create)
	teacher.Post("/:id/modules", h.Courses.AddModule)
	teacher.Post("/:id/modules/:moduleId/lessons", h.Courses.AddLesson)
	teacher.Patch("/:id/publish", h.Courses.Publish)
	teacher.Post("/:id/publish", h.Courses.Publish)
}
