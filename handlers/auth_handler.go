package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	FirstName   string  `json:"firstName" validate:"required"`
	LastName    string  `json:"lastName" validate:"required"`
	Role        string  `json:"role" validate:"omitempty,oneof=STUDENT TEACHER"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Register(c.UserContext(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        models.Role(req.Role),
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	user, err := h.auth.Me(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "User retrieved successfully", user)
}

type UpdateProfileRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	PhoneNumber  *string `json:"phoneNumber"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), id.UserID, services.ProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Profile updated successfully", user)
}
