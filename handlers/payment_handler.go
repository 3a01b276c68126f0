package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateIntentRequest struct {
	CourseID string  `json:"courseId" validate:"required,uuid"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

type SubscriptionRequest struct {
	PriceID string `json:"priceId" validate:"required"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) CreatePaymentIntent(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req CreateIntentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.payments.CreatePaymentIntent(c.UserContext(), id.UserID, uuid.MustParse(req.CourseID), req.Amount)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Payment intent created successfully", res)
}

func (h *PaymentHandler) ConfirmPayment(c *fiber.Ctx) error {
	var req ConfirmPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.ConfirmPayment(c.UserContext(), req.PaymentIntentID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Payment confirmed successfully", payment)
}

func (h *PaymentHandler) CreateSubscription(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req SubscriptionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.payments.CreateSubscription(c.UserContext(), id.UserID, req.PriceID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Subscription created successfully", res)
}

func (h *PaymentHandler) History(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	history, err := h.payments.PaymentHistory(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Payment history retrieved successfully", history)
}

func (h *PaymentHandler) CreateVerificationOrder(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	res, err := h.payments.CreateVerificationOrder(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Verification order created successfully", res)
}

func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.VerifySignedPayment(c.UserContext(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Payment verified successfully", fiber.Map{"payment": payment})
}

// Webhook acknowledges provider events, including the ones the service
// skips. Internal failures answer 500 so the provider redelivers them.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if err := h.payments.HandleWebhook(c.UserContext(), c.Body(), signature); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}
