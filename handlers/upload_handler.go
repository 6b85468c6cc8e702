package handlers

import (
	"errors"
	"time"

	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/gofiber/fiber/v2"
)

var uploadFolders = map[string]string{
	"thumbnail": media.ThumbnailFolder,
	"avatar":    media.AvatarFolder,
}

// GenerateUploadSignature lets the frontend upload avatars and, for instructors, course
// thumbnails straight to Cloudinary.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	kind := c.Query("kind", "avatar")
	folder, ok := uploadFolders[kind]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be thumbnail or avatar"})
	}
	if kind == "thumbnail" && actor.Role == models.RoleStudent {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: Instructor access required"})
	}
	sig, err := h.Media.SignUpload(folder, time.Now())
	if errors.Is(err, media.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "File uploads are not configured"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(sig)
}
