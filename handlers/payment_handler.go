package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/notifications"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxProofFileSize = 10 << 20

type SubmitPaymentForm struct {
	SubscriptionID uuid.UUID `validate:"required"`
	Amount         float64   `validate:"gt=0"`
	Currency       string    `validate:"omitempty,len=3,alpha"`
	Reference      string    `validate:"required,max=255"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

func parsePaymentForm(c *fiber.Ctx) (SubmitPaymentForm, error) {
	var form SubmitPaymentForm
	subID, err := uuid.Parse(c.FormValue("subscription_id"))
	if err != nil {
		return form, fmt.Errorf("%w: invalid subscription_id", services.ErrValidation)
	}
	amount, err := strconv.ParseFloat(c.FormValue("amount"), 64)
	if err != nil {
		return form, fmt.Errorf("%w: invalid amount", services.ErrValidation)
	}
	form = SubmitPaymentForm{
		SubscriptionID: subID,
		Amount:         amount,
		Currency:       strings.TrimSpace(c.FormValue("currency")),
		Reference:      strings.TrimSpace(c.FormValue("reference")),
	}
	if err := validate.Struct(form); err != nil {
		return form, fmt.Errorf("%w: %s", services.ErrValidation, err.Error())
	}
	return form, nil
}

// SubmitPayment accepts a bank-transfer claim with its receipt as multipart form data.
func (h *Handler) SubmitPayment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	form, err := parsePaymentForm(c)
	if err != nil {
		return respondError(c, err)
	}
	file, err := c.FormFile("proof")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Proof file is required"})
	}
	if file.Size > maxProofFileSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Proof file must be 10MB or smaller"})
	}

	sub, err := h.Billing.FindPendingSubscription(c.UserContext(), actor.ID, form.SubscriptionID)
	if err != nil {
		return respondError(c, err)
	}
	currency := form.Currency
	if currency == "" && sub.Package != nil {
		currency = sub.Package.Currency
	}

	proofURL, err := h.Media.UploadPaymentProof(c.UserContext(), file, sub.ID)
	if errors.Is(err, media.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "File uploads are not configured"})
	}
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to upload proof file"})
	}

	payment, err := h.Billing.SubmitPayment(c.UserContext(), services.PaymentSubmission{
		UserID:         actor.ID,
		SubscriptionID: sub.ID,
		Amount:         form.Amount,
		Currency:       currency,
		Reference:      form.Reference,
		ProofFileURL:   proofURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (h *Handler) ListMyPayments(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	var payments []models.Payment
	if err := h.DB.Preload("Subscription.Package").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(payments)
}

func (h *Handler) AdminListPayments(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	query := h.DB.Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err)
	}
	var payments []models.Payment
	if err := query.Preload("User").Preload("Subscription.Package").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&payments).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": payments, "meta": pageMeta(total, page, limit)})
}

func (h *Handler) ApprovePayment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	paymentID, err := paramUUID(c, "paymentId")
	if err != nil {
		return respondError(c, err)
	}

	payment, err := h.Billing.ApprovePayment(c.UserContext(), paymentID, actor.ID)
	if err != nil {
		return respondError(c, err)
	}

	sub := payment.Subscription
	email := notifications.PaymentApprovedEmail(sub.Package.Name, sub.EndDate.Format("January 2, 2006"))
	go h.Mailer.SendEmail(payment.User.FullName, payment.User.Email, email.Subject, email.Body)
	h.Hub.Notify(payment.UserID, websocket.TypePaymentReviewed, fiber.Map{
		"payment_id":      payment.ID,
		"status":          payment.Status,
		"subscription_id": sub.ID,
		"end_date":        sub.EndDate,
	})
	return c.JSON(payment)
}

func (h *Handler) RejectPayment(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	paymentID, err := paramUUID(c, "paymentId")
	if err != nil {
		return respondError(c, err)
	}
	var req RejectPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	payment, err := h.Billing.RejectPayment(c.UserContext(), paymentID, actor.ID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	email := notifications.PaymentRejectedEmail(*payment.RejectionReason)
	go h.Mailer.SendEmail(payment.User.FullName, payment.User.Email, email.Subject, email.Body)
	h.Hub.Notify(payment.UserID, websocket.TypePaymentReviewed, fiber.Map{
		"payment_id": payment.ID,
		"status":     payment.Status,
		"reason":     payment.RejectionReason,
	})
	return c.JSON(payment)
}

// ExportPaymentsCSV streams reviewed and pending payments created in the date range.
func (h *Handler) ExportPaymentsCSV(c *fiber.Ctx) error {
	startDateStr := c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDateStr := c.Query("end_date", time.Now().Format("2006-01-02"))

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD."})
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format. Use YYYY-MM-DD."})
	}
	if endDate.Before(startDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must not be before start_date"})
	}

	query := h.DB.Preload("User").Preload("Subscription.Package").
		Where("created_at >= ? AND created_at < ?", startDate, endDate.AddDate(0, 0, 1))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var payments []models.Payment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return respondError(c, err)
	}

	b, err := writePaymentsCSV(payments)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV"})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"payments_%s_to_%s.csv\"", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))
	return c.Send(b)
}

func writePaymentsCSV(payments []models.Payment) ([]byte, error) {
	b := new(bytes.Buffer)
	w := csv.NewWriter(b)

	headers := []string{"Payment ID", "Date", "Student Name", "Student Email", "Package", "Amount", "Currency", "Reference", "Status", "Reviewed At"}
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	for _, p := range payments {
		var studentName, studentEmail, packageName, reviewedAt string
		if p.User != nil {
			studentName = p.User.FullName
			studentEmail = p.User.Email
		}
		if p.Subscription != nil && p.Subscription.Package != nil {
			packageName = p.Subscription.Package.Name
		}
		if p.ReviewedAt != nil {
			reviewedAt = p.ReviewedAt.Format("2006-01-02 15:04")
		}
		row := []string{
			p.ID.String(),
			p.CreatedAt.Format("2006-01-02 15:04"),
			studentName,
			studentEmail,
			packageName,
			fmt.Sprintf("%.2f", p.Amount),
			p.Currency,
			p.Reference,
			p.Status,
			reviewedAt,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b.Bytes(), w.Error()
}
