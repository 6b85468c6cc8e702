package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/video"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateLessonRequest struct {
	Title                  string `json:"title" validate:"required,min=2,max=255"`
	Description            string `json:"description" validate:"max=10000"`
	DurationSeconds        int    `json:"duration_seconds" validate:"min=0"`
	IsPublished            *bool  `json:"is_published"`
	MinimumWatchPercentage *int   `json:"minimum_watch_percentage" validate:"omitempty,min=0,max=100"`
}

type UpdateLessonRequest struct {
	Title                  *string `json:"title" validate:"omitempty,min=2,max=255"`
	Description            *string `json:"description" validate:"omitempty,max=10000"`
	Order                  *int    `json:"order" validate:"omitempty,min=1"`
	DurationSeconds        *int    `json:"duration_seconds" validate:"omitempty,min=0"`
	IsPublished            *bool   `json:"is_published"`
	MinimumWatchPercentage *int    `json:"minimum_watch_percentage" validate:"omitempty,min=0,max=100"`
}

type AssignVideoRequest struct {
	VimeoVideoID string `json:"vimeo_video_id" validate:"required,max=64"`
}

func refreshLessonsCount(tx *gorm.DB, courseID uuid.UUID) error {
	count := tx.Model(&models.Lesson{}).Select("COUNT(*)").Where("course_id = ?", courseID)
	return tx.Model(&models.Course{}).Where("id = ?", courseID).Update("lessons_count", count).Error
}

func hideVideo(lesson models.Lesson) models.Lesson {
	lesson.VimeoVideoID = nil
	return lesson
}

// managedLesson loads :lessonId and checks that the caller manages its course.
func (h *Handler) managedLesson(c *fiber.Ctx) (*models.Lesson, error) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token claims", services.ErrForbidden)
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return nil, err
	}
	var lesson models.Lesson
	if err := h.DB.First(&lesson, "id = ?", lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lesson: %w", services.ErrNotFound)
		}
		return nil, err
	}
	course, err := h.findCourse(c.UserContext(), lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, fmt.Errorf("%w: you do not manage this course", services.ErrForbidden)
	}
	return &lesson, nil
}

// ListLessons returns the syllabus in course order. Video ids are only included for
// enrolled students, the owner and admins.
func (h *Handler) ListLessons(c *fiber.Ctx) error {
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return respondError(c, err)
	}
	course, err := h.findCourse(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, err)
	}
	actor, _ := middleware.CurrentActor(c)
	manager := actor.CanManageCourse(course)
	if !course.IsPublished && !manager {
		return respondError(c, fmt.Errorf("course: %w", services.ErrNotFound))
	}

	query := h.DB.Where("course_id = ?", courseID)
	if !manager {
		query = query.Where("is_published = ?", true)
	}
	var lessons []models.Lesson
	if err := query.Order("lesson_order ASC").Find(&lessons).Error; err != nil {
		return respondError(c, err)
	}

	if !manager && !course.IsEnrolled(actor.ID) {
		for i := range lessons {
			lessons[i] = hideVideo(lessons[i])
		}
	}
	return c.JSON(lessons)
}

// GetLesson returns the lesson with its quiz and the caller's progress.
func (h *Handler) GetLesson(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return respondError(c, err)
	}
	lesson, err := h.Progress.AuthorizeLessonAccess(c.UserContext(), actor, lessonID)
	if err != nil {
		return respondError(c, err)
	}

	response := fiber.Map{"lesson": lesson, "quiz": nil}
	var quiz models.Quiz
	err = h.DB.First(&quiz, "lesson_id = ?", lessonID).Error
	switch {
	case err == nil:
		course, cerr := h.findCourse(c.UserContext(), lesson.CourseID)
		if cerr != nil {
			return respondError(c, cerr)
		}
		if actor.CanManageCourse(course) {
			response["quiz"] = quiz
		} else {
			response["quiz"] = quiz.Public()
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return respondError(c, err)
	}

	p, err := h.Progress.GetLessonProgress(c.UserContext(), actor.ID, lessonID)
	if err != nil {
		return respondError(c, err)
	}
	response["progress"] = p
	return c.JSON(response)
}

func (h *Handler) CreateLesson(c *fiber.Ctx) error {
	course, _, err := h.managedCourse(c)
	if err != nil {
		return respondError(c, err)
	}
	var req CreateLessonRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	lesson := models.Lesson{
		CourseID:               course.ID,
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		DurationSeconds:        req.DurationSeconds,
		IsPublished:            true,
		MinimumWatchPercentage: models.DefaultMinimumWatchPercentage,
	}
	if req.IsPublished != nil {
		lesson.IsPublished = *req.IsPublished
	}
	if req.MinimumWatchPercentage != nil {
		lesson.MinimumWatchPercentage = *req.MinimumWatchPercentage
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		// serialize order assignment per course
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&models.Course{}, "id = ?", course.ID).Error; err != nil {
			return err
		}
		var maxOrder int
		if err := tx.Model(&models.Lesson{}).
			Where("course_id = ?", course.ID).
			Select("COALESCE(MAX(lesson_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		lesson.Order = maxOrder + 1
		// Select("*") writes explicit false/0 values instead of the column defaults
		lesson.ID = uuid.New()
		if err := tx.Select("*").Omit(clause.Associations).Create(&lesson).Error; err != nil {
			return err
		}
		return refreshLessonsCount(tx, course.ID)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (h *Handler) UpdateLesson(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	var req UpdateLessonRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Order != nil {
		updates["lesson_order"] = *req.Order
	}
	if req.DurationSeconds != nil {
		updates["duration_seconds"] = *req.DurationSeconds
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if req.MinimumWatchPercentage != nil {
		updates["minimum_watch_percentage"] = *req.MinimumWatchPercentage
	}
	if len(updates) > 0 {
		if err := h.DB.Model(lesson).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return respondError(c, fmt.Errorf("%w: another lesson already has that order", services.ErrConflict))
			}
			return respondError(c, err)
		}
	}
	return c.JSON(lesson)
}

// DeleteLesson removes the lesson, its quiz and its progress rows.
func (h *Handler) DeleteLesson(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(lesson).Error; err != nil {
			return err
		}
		return refreshLessonsCount(tx, lesson.CourseID)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted successfully"})
}

// AssignLessonVideo stores the Vimeo id verbatim.
func (h *Handler) AssignLessonVideo(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	var req AssignVideoRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if !video.ValidID(req.VimeoVideoID) {
		return respondError(c, fmt.Errorf("%w: vimeo video id must be numeric", services.ErrValidation))
	}

	if err := h.DB.Model(lesson).Update("vimeo_video_id", req.VimeoVideoID).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Video assigned successfully", "vimeo_video_id": req.VimeoVideoID})
}

// GetVideoDetails looks a video up on Vimeo with the configured access token.
func (h *Handler) GetVideoDetails(c *fiber.Ctx) error {
	details, err := h.Videos.GetVideo(c.UserContext(), c.Params("videoId"))
	switch {
	case errors.Is(err, video.ErrInvalidID):
		return respondError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
	case errors.Is(err, video.ErrNotFound):
		return respondError(c, fmt.Errorf("video: %w", services.ErrNotFound))
	case errors.Is(err, video.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Vimeo is not configured"})
	case err != nil:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch video from Vimeo"})
	}
	return c.JSON(details)
}
