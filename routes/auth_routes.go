package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h Handlers) {
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Get("/me", middleware.Protected(h.JWTSecret), h.Auth.Me)
	auth.Put("/profile", middleware.Protected(h.JWTSecret), h.Auth.UpdateProfile)
}
