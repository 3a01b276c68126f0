package middleware

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const identityKey = "identity"

// Identity is the authenticated caller, scoped to one request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid or expired token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid or expired token")
			}
			id, err := identityFromClaims(claims)
			if err != nil {
				return unauthorized(c, "Invalid or expired token")
			}
			c.Locals(identityKey, id)
			return c.Next()
		},
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return unauthorized(c, "User not authenticated")
	}
	return unauthorized(c, "Invalid or expired token")
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": msg})
}

// ParseToken validates a raw token outside the HTTP middleware chain, e.g.
// the first websocket frame.
func ParseToken(secret, raw string) (*Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return &Identity{UserID: userID, Email: email, Role: models.Role(role)}, nil
}

// CurrentIdentity returns the caller set by Protected.
func CurrentIdentity(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityKey).(*Identity)
	return id, ok && id != nil
}

// RoleRequired lets the request through only for the listed roles. It must
// run after Protected.
func RoleRequired(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return unauthorized(c, "User not authenticated")
		}
		for _, r := range roles {
			if id.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   fmt.Sprintf("Forbidden: %s access required", roles[0]),
		})
	}
}
