package handlers

import (
	"strings"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PackageRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=255"`
	Description  string  `json:"description" validate:"max=5000"`
	Price        float64 `json:"price" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationDays int     `json:"duration_days" validate:"required,min=1,max=3650"`
}

type UpdatePackageRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=2,max=255"`
	Description  *string  `json:"description" validate:"omitempty,max=5000"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency     *string  `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationDays *int     `json:"duration_days" validate:"omitempty,min=1,max=3650"`
	IsActive     *bool    `json:"is_active"`
}

type SubscribeRequest struct {
	PackageID uuid.UUID `json:"package_id" validate:"required"`
}

// ListPackages is public and only shows packages on sale.
func (h *Handler) ListPackages(c *fiber.Ctx) error {
	var packages []models.SubscriptionPackage
	if err := h.DB.Where("is_active = ?", true).Order("price ASC").Find(&packages).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(packages)
}

func (h *Handler) AdminListPackages(c *fiber.Ctx) error {
	var packages []models.SubscriptionPackage
	if err := h.DB.Order("created_at DESC").Find(&packages).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(packages)
}

func (h *Handler) CreatePackage(c *fiber.Ctx) error {
	var req PackageRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	pkg := models.SubscriptionPackage{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		Currency:     strings.ToUpper(req.Currency),
		DurationDays: req.DurationDays,
		IsActive:     true,
	}
	if pkg.Currency == "" {
		pkg.Currency = "SAR"
	}
	if err := h.DB.Create(&pkg).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

func (h *Handler) UpdatePackage(c *fiber.Ctx) error {
	packageID, err := paramUUID(c, "packageId")
	if err != nil {
		return respondError(c, err)
	}
	var pkg models.SubscriptionPackage
	if err := h.DB.First(&pkg, "id = ?", packageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	}
	var req UpdatePackageRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Currency != nil {
		updates["currency"] = strings.ToUpper(*req.Currency)
	}
	if req.DurationDays != nil {
		updates["duration_days"] = *req.DurationDays
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&pkg).Updates(updates).Error; err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(pkg)
}

// DeactivatePackage takes the package off sale. Existing subscriptions are unaffected.
func (h *Handler) DeactivatePackage(c *fiber.Ctx) error {
	packageID, err := paramUUID(c, "packageId")
	if err != nil {
		return respondError(c, err)
	}
	res := h.DB.Model(&models.SubscriptionPackage{}).Where("id = ?", packageID).Update("is_active", false)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	}
	return c.JSON(fiber.Map{"message": "Package deactivated successfully"})
}

func (h *Handler) RequestSubscription(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	var req SubscribeRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	sub, err := h.Billing.RequestSubscription(c.UserContext(), actor.ID, req.PackageID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *Handler) GetMySubscription(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	sub, err := h.Billing.CurrentSubscription(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

func (h *Handler) AdminListSubscriptions(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	query := h.DB.Model(&models.Subscription{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err)
	}
	var subs []models.Subscription
	if err := query.Preload("User").Preload("Package").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&subs).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": subs, "meta": pageMeta(total, page, limit)})
}

func (h *Handler) CancelSubscription(c *fiber.Ctx) error {
	subscriptionID, err := paramUUID(c, "subscriptionId")
	if err != nil {
		return respondError(c, err)
	}
	sub, err := h.Billing.CancelSubscription(c.UserContext(), subscriptionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}
