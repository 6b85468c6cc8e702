package routes

import (
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const testSecret = "routes-test-secret"

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return s
}

// Only requests stopped by middleware are exercised here; none of them reach the database.
func TestRouteGuards(t *testing.T) {
	app := fiber.New()
	Setup(app, &handlers.Handler{
		Config: &config.AppConfig{JWTSecret: testSecret},
		Hub:    websocket.NewHub(),
	})
	lesson := "/api/v1/lessons/" + uuid.NewString()
	course := "/api/v1/courses/" + uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		status int
	}{
		{"dashboard needs a token", "GET", "/api/v1/dashboard/student", "", fiber.StatusBadRequest},
		{"watch needs a token", "POST", lesson + "/progress/watch", "", fiber.StatusBadRequest},
		{"enroll needs a token", "POST", course + "/enroll", "", fiber.StatusBadRequest},
		{"admin area rejects students", "GET", "/api/v1/admin/users", models.RoleStudent, fiber.StatusForbidden},
		{"admin area rejects instructors", "GET", "/api/v1/admin/payments", models.RoleInstructor, fiber.StatusForbidden},
		{"students cannot create courses", "POST", "/api/v1/courses", models.RoleStudent, fiber.StatusForbidden},
		{"students cannot write quizzes", "POST", lesson + "/quiz", models.RoleStudent, fiber.StatusForbidden},
		{"students cannot read lesson analytics", "GET", lesson + "/analytics", models.RoleStudent, fiber.StatusForbidden},
		{"instructor dashboard rejects students", "GET", "/api/v1/dashboard/instructor", models.RoleStudent, fiber.StatusForbidden},
		{"optional auth still rejects bad tokens", "GET", course, "bad", fiber.StatusUnauthorized},
		{"websocket route needs an upgrade", "GET", "/ws", "", fiber.StatusUpgradeRequired},
		{"unknown route", "GET", "/api/v1/nope", "", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			switch tt.role {
			case "":
			case "bad":
				req.Header.Set("Authorization", "Bearer not-a-jwt")
			default:
				req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role))
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
