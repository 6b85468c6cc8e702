package handlers

import (
	"strings"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/gofiber/fiber/v2"
)

type UserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type UserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student instructor admin"`
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	search := strings.TrimSpace(c.Query("search"))

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchTerm := "%" + search + "%"
		query = query.Where("full_name ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err)
	}
	var users []models.User
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return respondError(c, err)
	}

	data := make([]UserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, newUserResponse(u))
	}
	return c.JSON(fiber.Map{"data": data, "meta": pageMeta(total, page, limit)})
}

// SetUserStatus activates or deactivates an account. Admins cannot lock themselves out.
func (h *Handler) SetUserStatus(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	var req UserStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if userID == actor.ID && !*req.IsActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot deactivate your own account"})
	}

	res := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_active", *req.IsActive)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(fiber.Map{"message": "User status updated successfully."})
}

func (h *Handler) SetUserRole(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	var req UserRoleRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if !models.ValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown role"})
	}
	if userID == actor.ID && req.Role != models.RoleAdmin {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot remove your own admin role"})
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err := h.DB.Model(&user).Update("role", req.Role).Error; err != nil {
		return respondError(c, err)
	}
	user.Role = req.Role
	return c.JSON(newUserResponse(user))
}
