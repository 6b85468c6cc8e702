package handlers

import (
	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/gofiber/fiber/v2"
)

type WatchProgressRequest struct {
	WatchPercentage *float64 `json:"watch_percentage" validate:"required,min=0,max=100"`
}

type SubmitQuizRequest struct {
	Answers []int `json:"answers" validate:"max=8,dive,min=0,max=2"`
}

// RecordWatchProgress stores the highest watch percentage reported for the lesson.
func (h *Handler) RecordWatchProgress(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return respondError(c, err)
	}
	var req WatchProgressRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if _, err := h.Progress.AuthorizeLessonAccess(c.UserContext(), actor, lessonID); err != nil {
		return respondError(c, err)
	}

	result, err := h.Progress.RecordWatch(c.UserContext(), actor.ID, lessonID, *req.WatchPercentage)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) SubmitLessonQuiz(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return respondError(c, err)
	}
	var req SubmitQuizRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if _, err := h.Progress.AuthorizeLessonAccess(c.UserContext(), actor, lessonID); err != nil {
		return respondError(c, err)
	}

	result, err := h.Progress.SubmitQuiz(c.UserContext(), actor.ID, lessonID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) GetLessonProgress(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.Progress.AuthorizeLessonAccess(c.UserContext(), actor, lessonID); err != nil {
		return respondError(c, err)
	}

	p, err := h.Progress.GetLessonProgress(c.UserContext(), actor.ID, lessonID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}
