package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

type TeacherProfileRequest struct {
	Bio            *string `json:"bio"`
	Specialization *string `json:"specialization"`
	Experience     *int    `json:"experience" validate:"omitempty,gte=0"`
	Education      *string `json:"education"`
}

type TeacherHandler struct {
	teachers *services.TeacherService
	courses  *services.CourseService
}

func NewTeacherHandler(teachers *services.TeacherService, courses *services.CourseService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, courses: courses}
}

func (h *TeacherHandler) Profile(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	teacher, err := h.teachers.Profile(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Profile retrieved successfully", teacher)
}

func (h *TeacherHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req TeacherProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	teacher, err := h.teachers.UpdateProfile(c.UserContext(), id.UserID, services.TeacherProfileInput{
		Bio:            req.Bio,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Education:      req.Education,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Profile updated successfully", teacher)
}

func (h *TeacherHandler) Earnings(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	earnings, err := h.teachers.Earnings(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Earnings retrieved successfully", earnings)
}

func (h *TeacherHandler) Stats(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	stats, err := h.teachers.Stats(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Stats retrieved successfully", stats)
}

func (h *TeacherHandler) Courses(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	courses, err := h.courses.TeacherCourses(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Courses retrieved successfully", courses)
}

// UploadVerificationDocument takes a multipart "document" field.
func (h *TeacherHandler) UploadVerificationDocument(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	header, err := c.FormFile("document")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "document is required")
	}
	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot read uploaded document")
	}
	defer file.Close()

	teacher, err := h.teachers.UploadVerificationDocument(c.UserContext(), id.UserID, header.Filename, file)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Verification document uploaded successfully", teacher)
}
