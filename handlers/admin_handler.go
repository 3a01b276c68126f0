package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

type VerificationRequest struct {
	Status string `json:"status" validate:"required"`
}

type AdminHandler struct {
	teachers *services.TeacherService
}

func NewAdminHandler(teachers *services.TeacherService) *AdminHandler {
	return &AdminHandler{teachers: teachers}
}

// ListTeachers accepts ?status=PENDING and friends.
func (h *AdminHandler) ListTeachers(c *fiber.Ctx) error {
	teachers, err := h.teachers.ListTeachers(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Teachers retrieved successfully", teachers)
}

func (h *AdminHandler) SetVerification(c *fiber.Ctx) error {
	teacherID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req VerificationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	teacher, err := h.teachers.SetVerification(c.UserContext(), teacherID, req.Status)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Verification status updated successfully", teacher)
}
