package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/notifications"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/utils"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstructorApplicationRequest struct {
	FullName  string `json:"full_name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Bio       string `json:"bio" validate:"required,min=20,max=5000"`
	Expertise string `json:"expertise" validate:"required,max=255"`
}

type RejectApplicationRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// ApplyAsInstructor is public. Only one pending application per email is kept.
func (h *Handler) ApplyAsInstructor(c *fiber.Ctx) error {
	var req InstructorApplicationRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	email := normalizeEmail(req.Email)

	var pending int64
	h.DB.Model(&models.InstructorApplication{}).
		Where("email = ? AND status = ?", email, models.ApplicationPending).
		Count(&pending)
	if pending > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "An application for this email is already under review"})
	}

	app := models.InstructorApplication{
		FullName:  strings.TrimSpace(req.FullName),
		Email:     email,
		Phone:     req.Phone,
		Bio:       req.Bio,
		Expertise: req.Expertise,
		Status:    models.ApplicationPending,
	}
	if err := h.DB.Create(&app).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *Handler) ListApplications(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	status := c.Query("status", models.ApplicationPending)
	query := h.DB.Model(&models.InstructorApplication{})
	if status != "all" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err)
	}
	var apps []models.InstructorApplication
	if err := query.Order("created_at ASC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": apps, "meta": pageMeta(total, page, limit)})
}

func lockPendingApplication(tx *gorm.DB, id interface{}) (*models.InstructorApplication, error) {
	var app models.InstructorApplication
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application: %w", services.ErrNotFound)
		}
		return nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, fmt.Errorf("%w: application is already %s", services.ErrConflict, app.Status)
	}
	return &app, nil
}

// ApproveApplication promotes the applicant's existing account to instructor, or creates
// one with a temporary password that is emailed to them.
func (h *Handler) ApproveApplication(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	applicationID, err := paramUUID(c, "applicationId")
	if err != nil {
		return respondError(c, err)
	}

	var app *models.InstructorApplication
	var user models.User
	var temporaryPassword string
	now := time.Now()

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = lockPendingApplication(tx, applicationID)
		if err != nil {
			return err
		}

		err = tx.Where("email = ?", app.Email).First(&user).Error
		switch {
		case err == nil:
			if user.Role != models.RoleAdmin {
				if err := tx.Model(&user).Update("role", models.RoleInstructor).Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			temporaryPassword, err = utils.GenerateTemporaryPassword()
			if err != nil {
				return err
			}
			hashed, err := h.hashPassword(temporaryPassword)
			if err != nil {
				return err
			}
			user = models.User{
				FullName: app.FullName,
				Email:    app.Email,
				Password: hashed,
				Role:     models.RoleInstructor,
				IsActive: true,
			}
			if app.Phone != "" {
				phone := app.Phone
				user.Phone = &phone
			}
			bio := app.Bio
			user.Bio = &bio
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Model(app).Updates(map[string]interface{}{
			"status":      models.ApplicationApproved,
			"user_id":     user.ID,
			"reviewed_by": actor.ID,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("✅ Instructor application %s approved for user %s", app.ID, user.ID)
	email := notifications.ApplicationApprovedEmail(user.Email, temporaryPassword)
	go h.Mailer.SendEmail(user.FullName, user.Email, email.Subject, email.Body)
	h.Hub.Notify(user.ID, websocket.TypeApplicationReviewed, fiber.Map{"application_id": app.ID, "status": models.ApplicationApproved})

	return c.JSON(fiber.Map{"message": "Application approved", "application": app, "user": newUserResponse(user)})
}

func (h *Handler) RejectApplication(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	applicationID, err := paramUUID(c, "applicationId")
	if err != nil {
		return respondError(c, err)
	}
	var req RejectApplicationRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	reason := strings.TrimSpace(req.Reason)

	var app *models.InstructorApplication
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = lockPendingApplication(tx, applicationID)
		if err != nil {
			return err
		}
		return tx.Model(app).Updates(map[string]interface{}{
			"status":           models.ApplicationRejected,
			"rejection_reason": reason,
			"reviewed_by":      actor.ID,
			"reviewed_at":      time.Now(),
		}).Error
	})
	if err != nil {
		return respondError(c, err)
	}

	email := notifications.ApplicationRejectedEmail(reason)
	go h.Mailer.SendEmail(app.FullName, app.Email, email.Subject, email.Body)

	return c.JSON(fiber.Map{"message": "Application rejected", "application": app})
}
