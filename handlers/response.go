package handlers

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/anjiri1684/edutech_marketplace/middleware"
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

// statusFor maps a service error kind onto its HTTP status. Provider
// timeouts get 504 so clients can tell "retry" from "rejected".
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindInvalidState, services.KindConflict, services.KindValidation,
		services.KindProviderFailed, services.KindUnsupported:
		return fiber.StatusBadRequest
	case services.KindUnauthorized:
		return fiber.StatusUnauthorized
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindProviderTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error a handler returns in the response
// envelope. Internal details are only exposed outside production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return failure(c, fe.Code, fe.Message)
		}

		var se *services.Error
		if errors.As(err, &se) {
			status := statusFor(se.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			}
			if se.Kind == services.KindInternal && !production && se.Err != nil {
				return failure(c, status, se.Err.Error())
			}
			return failure(c, status, se.Message)
		}

		log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
		if production {
			return failure(c, fiber.StatusInternalServerError, "Internal server error")
		}
		return failure(c, fiber.StatusInternalServerError, err.Error())
	}
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}

// caller is the identity placed on the request by middleware.Protected.
func caller(c *fiber.Ctx) (*middleware.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// NotFound is the fallback for unknown routes.
func NotFound(c *fiber.Ctx) error {
	return failure(c, fiber.StatusNotFound, "Route not found")
}
