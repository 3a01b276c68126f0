package routes

import (
	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(api fiber.Router, h Handlers) {
	payments := api.Group("/payments")

	// Provider callbacks and client-side confirmation carry no session.
	payments.Post("/webhook", h.Payments.Webhook)
	payments.Post("/confirm-payment", h.Payments.ConfirmPayment)
	payments.Post("/verify", h.Payments.VerifyPayment)
	payments.Post("/verification/verify", h.Payments.VerifyPayment)

	protected := payments.Group("", middleware.Protected(h.JWTSecret))
	protected.Get("/history", middleware.RoleRequired(models.RoleStudent), h.Payments.History)
	protected.Post("/create-payment-intent", middleware.RoleRequired(models.RoleStudent), h.Payments.CreatePaymentIntent)
	protected.Post("/create-subscription", middleware.RoleRequired(models.RoleTeacher), h.Payments.CreateSubscription)
	protected.Post("/verification/create-order", middleware.RoleRequired(models.RoleTeacher), h.Payments.CreateVerificationOrder)
}
