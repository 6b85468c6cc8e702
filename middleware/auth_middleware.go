package middleware

import (
	"errors"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var errNoToken = errors.New("missing token")

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

// OptionalAuth verifies the token when one is sent and lets anonymous requests through.
func OptionalAuth(secret string) fiber.Handler {
	protected := Protected(secret)
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return protected(c)
	}
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// CurrentActor reads the caller from the token stored by Protected.
func CurrentActor(c *fiber.Ctx) (services.Actor, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return services.Actor{}, errNoToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Actor{}, errNoToken
	}
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return services.Actor{}, err
	}
	role, _ := claims["role"].(string)
	return services.Actor{ID: id, Role: role}, nil
}

func requireRole(message string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}
		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": message})
	}
}

func AdminRequired() fiber.Handler {
	return requireRole("Forbidden: Admin access required", models.RoleAdmin)
}

// InstructorRequired admits instructors and admins.
func InstructorRequired() fiber.Handler {
	return requireRole("Forbidden: Instructor access required", models.RoleInstructor, models.RoleAdmin)
}
