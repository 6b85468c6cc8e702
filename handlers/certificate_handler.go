package handlers

import (
	"errors"

	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetMyCertificates(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	certs, err := h.Certificates.ListByUser(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(certs)
}

// IssueCertificate generates the caller's certificate for a completed course. It is the
// manual retry when background generation failed; an existing certificate is returned.
func (h *Handler) IssueCertificate(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return respondError(c, err)
	}
	cert, err := h.Certificates.Issue(c.UserContext(), actor.ID, courseID)
	if errors.Is(err, media.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Certificate storage is not configured"})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cert)
}
