package handlers

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/journal"
	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/notifications"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/video"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var validate = validator.New()

// Handler carries every dependency the HTTP layer needs. Optional clients (Media, Videos,
// Journal, GoogleOAuth, Mailer) may be nil when their configuration is absent.
type Handler struct {
	DB     *gorm.DB
	Config *config.AppConfig

	Progress     *services.ProgressService
	Analytics    *services.AnalyticsService
	Enrollment   *services.EnrollmentService
	Billing      *services.BillingService
	Certificates *services.CertificateService

	Mailer      *notifications.Mailer
	Media       *media.Client
	Videos      *video.Client
	Hub         *websocket.Hub
	Journal     *journal.Journal
	GoogleOAuth *oauth2.Config
}

// respondError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("🔥 %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func bindJSON(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: cannot parse JSON", services.ErrValidation)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", services.ErrValidation, err.Error())
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", services.ErrValidation, name)
	}
	return id, nil
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

func pageMeta(total int64, page, limit int) fiber.Map {
	return fiber.Map{
		"total":        total,
		"total_pages":  int(math.Ceil(float64(total) / float64(limit))),
		"current_page": page,
		"limit":        limit,
	}
}
