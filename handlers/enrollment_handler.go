package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

type ProgressRequest struct {
	CourseID          string `json:"courseId" validate:"required,uuid"`
	CompletedLessonID string `json:"completedLessonId" validate:"required"`
}

type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
}

func NewEnrollmentHandler(enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req EnrollRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	enrollment, err := h.enrollments.Enroll(c.UserContext(), id.UserID, uuid.MustParse(req.CourseID))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "Enrolled successfully", enrollment)
}

func (h *EnrollmentHandler) MyEnrollments(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	enrollments, err := h.enrollments.MyEnrollments(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Enrollments retrieved successfully", enrollments)
}

func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req ProgressRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	enrollment, err := h.enrollments.UpdateProgress(c.UserContext(), id.UserID, uuid.MustParse(req.CourseID), req.CompletedLessonID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Progress updated successfully", enrollment)
}

func (h *EnrollmentHandler) Status(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return err
	}

	status, err := h.enrollments.Status(c.UserContext(), id.UserID, courseID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Enrollment status retrieved successfully", status)
}

func (h *EnrollmentHandler) Certificate(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return err
	}

	cert, err := h.enrollments.Certificate(c.UserContext(), id.UserID, courseID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Certificate retrieved successfully", cert)
}

func (h *EnrollmentHandler) DashboardStats(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	stats, err := h.enrollments.DashboardStats(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Dashboard stats retrieved successfully", stats)
}
