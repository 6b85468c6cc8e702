package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return s
}

func newApp() *fiber.App {
	app := fiber.New()
	api := app.Group("/api", Protected(testSecret))
	api.Get("/me", func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"id": actor.ID, "role": actor.Role})
	})
	api.Get("/admin", AdminRequired(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	api.Get("/instructor", InstructorRequired(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func TestRoleGates(t *testing.T) {
	app := newApp()
	tokenFor := func(role string) string {
		return sign(t, testSecret, jwt.MapClaims{
			"user_id": uuid.NewString(),
			"role":    role,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
	}

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/api/me", "", fiber.StatusBadRequest},
		{"bad signature", "/api/me", sign(t, "other", jwt.MapClaims{"user_id": uuid.NewString()}), fiber.StatusUnauthorized},
		{"expired", "/api/me", sign(t, testSecret, jwt.MapClaims{"user_id": uuid.NewString(), "exp": time.Now().Add(-time.Hour).Unix()}), fiber.StatusUnauthorized},
		{"student reads me", "/api/me", tokenFor(models.RoleStudent), fiber.StatusOK},
		{"student on admin", "/api/admin", tokenFor(models.RoleStudent), fiber.StatusForbidden},
		{"admin on admin", "/api/admin", tokenFor(models.RoleAdmin), fiber.StatusOK},
		{"student on instructor", "/api/instructor", tokenFor(models.RoleStudent), fiber.StatusForbidden},
		{"instructor on instructor", "/api/instructor", tokenFor(models.RoleInstructor), fiber.StatusOK},
		{"admin on instructor", "/api/instructor", tokenFor(models.RoleAdmin), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/courses", OptionalAuth(testSecret), func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return c.SendString("anonymous")
		}
		return c.SendString(actor.Role)
	})

	valid := sign(t, testSecret, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    models.RoleStudent,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", fiber.StatusOK, "anonymous"},
		{"valid token", "Bearer " + valid, fiber.StatusOK, models.RoleStudent},
		{"invalid token is still rejected", "Bearer " + sign(t, "other", jwt.MapClaims{}), fiber.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/courses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.body == "" {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}
