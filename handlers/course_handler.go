package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCourseRequest struct {
	Title        string  `json:"title" validate:"required,min=3,max=255"`
	Description  string  `json:"description" validate:"max=10000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	Level        string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category     string  `json:"category" validate:"max=100"`
}

type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	Level        *string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
}

type PublishRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

// CourseView is a course as returned by the API; the enrolled-student set is reduced to a count.
type CourseView struct {
	*models.Course
	EnrolledCount int  `json:"enrolled_count"`
	IsEnrolled    bool `json:"is_enrolled"`
}

func newCourseView(course *models.Course, viewer uuid.UUID) CourseView {
	return CourseView{
		Course:        course,
		EnrolledCount: course.EnrolledCount(),
		IsEnrolled:    viewer != uuid.Nil && course.IsEnrolled(viewer),
	}
}

func (h *Handler) findCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := h.DB.WithContext(ctx).Preload("Instructor").First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course: %w", services.ErrNotFound)
		}
		return nil, err
	}
	return &course, nil
}

// managedCourse loads the course named by :courseId and checks that the caller may edit it.
func (h *Handler) managedCourse(c *fiber.Ctx) (*models.Course, services.Actor, error) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return nil, actor, fmt.Errorf("%w: invalid token claims", services.ErrForbidden)
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return nil, actor, err
	}
	course, err := h.findCourse(c.UserContext(), courseID)
	if err != nil {
		return nil, actor, err
	}
	if !actor.CanManageCourse(course) {
		return nil, actor, fmt.Errorf("%w: you do not manage this course", services.ErrForbidden)
	}
	return course, actor, nil
}

// ListPublishedCourses is the public catalog.
func (h *Handler) ListPublishedCourses(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	query := h.DB.Model(&models.Course{}).Where("is_published = ?", true)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		term := "%" + search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", term, term)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if level := c.Query("level"); level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err)
	}
	var courses []models.Course
	if err := query.Preload("Instructor").Order("created_at DESC").Offset(offset).Limit(limit).Find(&courses).Error; err != nil {
		return respondError(c, err)
	}

	views := make([]CourseView, len(courses))
	for i := range courses {
		views[i] = newCourseView(&courses[i], uuid.Nil)
	}
	return c.JSON(fiber.Map{"data": views, "meta": pageMeta(total, page, limit)})
}

// GetCourse is public for published courses; drafts are visible to their owner and admins.
func (h *Handler) GetCourse(c *fiber.Ctx) error {
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return respondError(c, err)
	}
	course, err := h.findCourse(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, err)
	}

	// the route is public; a valid token is optional here
	actor, _ := middleware.CurrentActor(c)
	if !course.IsPublished && !actor.CanManageCourse(course) {
		return respondError(c, fmt.Errorf("course: %w", services.ErrNotFound))
	}
	return c.JSON(newCourseView(course, actor.ID))
}

func (h *Handler) ListMyCourses(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	var courses []models.Course
	if err := h.DB.Where("instructor_id = ?", actor.ID).Order("created_at DESC").Find(&courses).Error; err != nil {
		return respondError(c, err)
	}
	views := make([]CourseView, len(courses))
	for i := range courses {
		views[i] = newCourseView(&courses[i], actor.ID)
	}
	return c.JSON(views)
}

func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	var req CreateCourseRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	course := models.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Level:        req.Level,
		Category:     req.Category,
		InstructorID: actor.ID,
	}
	if course.Level == "" {
		course.Level = "beginner"
	}
	if err := h.DB.Create(&course).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newCourseView(&course, actor.ID))
}

func (h *Handler) UpdateCourse(c *fiber.Ctx) error {
	course, actor, err := h.managedCourse(c)
	if err != nil {
		return respondError(c, err)
	}
	var req UpdateCourseRequest
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
	if req.ThumbnailURL != nil {
		updates["thumbnail_url"] = *req.ThumbnailURL
	}
	if req.Level != nil {
		updates["level"] = *req.Level
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if len(updates) > 0 {
		if err := h.DB.Model(course).Updates(updates).Error; err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(newCourseView(course, actor.ID))
}

func (h *Handler) SetCoursePublished(c *fiber.Ctx) error {
	course, actor, err := h.managedCourse(c)
	if err != nil {
		return respondError(c, err)
	}
	var req PublishRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.DB.Model(course).Update("is_published", *req.IsPublished).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(newCourseView(course, actor.ID))
}

// DeleteCourse removes the course with its lessons, quizzes and progress rows.
// Issued certificates are kept.
func (h *Handler) DeleteCourse(c *fiber.Ctx) error {
	course, _, err := h.managedCourse(c)
	if err != nil {
		return respondError(c, err)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		lessonIDs := tx.Model(&models.Lesson{}).Select("id").Where("course_id = ?", course.ID)
		if err := tx.Where("lesson_id IN (?)", lessonIDs).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.LessonProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.CourseProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(course).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course deleted successfully"})
}

func (h *Handler) EnrollInCourse(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	courseID, err := paramUUID(c, "courseId")
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.Enrollment.Enroll(c.UserContext(), actor.ID, courseID)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if result.Touch == services.TouchCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}
