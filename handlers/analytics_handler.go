package handlers

import (
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetStudentDashboard(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	summary, err := h.Analytics.StudentSummary(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *Handler) GetStudentCourseProgress(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return respondError(c, err)
	}
	detail, err := h.Analytics.StudentCourseDetail(c.UserContext(), actor.ID, courseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// GetInstructorDashboard reports on the caller's own courses.
func (h *Handler) GetInstructorDashboard(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	stats, err := h.Analytics.InstructorSummary(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetInstructorDashboardFor lets an admin read any instructor's report.
func (h *Handler) GetInstructorDashboardFor(c *fiber.Ctx) error {
	instructorID, err := paramUUID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Analytics.InstructorSummary(c.UserContext(), instructorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *Handler) GetAdminOverview(c *fiber.Ctx) error {
	overview, err := h.Analytics.AdminOverview(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}

func (h *Handler) GetLessonAnalytics(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return respondError(c, err)
	}
	analytics, err := h.Analytics.LessonAnalytics(c.UserContext(), actor, lessonID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(analytics)
}

// GetUserProgressEvents reads the progress journal. It answers with an empty list when
// the journal is disabled.
func (h *Handler) GetUserProgressEvents(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	limit := int64(c.QueryInt("limit", 0))
	entries, err := h.Journal.ListByUser(c.UserContext(), userID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": entries, "journal_enabled": h.Journal.Enabled()})
}
