package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aiqda/aiqda-backend/middleware"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizQuestionRequest struct {
	ID            string   `json:"id" validate:"max=64"`
	Question      string   `json:"question" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"len=3,dive,required,max=500"`
	CorrectAnswer *int     `json:"correct_answer" validate:"required,min=0,max=2"`
}

type QuizRequest struct {
	Questions    []QuizQuestionRequest `json:"questions" validate:"required,min=1,max=8,dive"`
	PassingScore *int                  `json:"passing_score" validate:"omitempty,min=1"`
}

// buildQuiz converts the request into stored questions, assigning ids to new questions and
// defaulting the passing score to 60% rounded up.
func buildQuiz(req QuizRequest) ([]models.QuizQuestion, int, error) {
	questions := make([]models.QuizQuestion, len(req.Questions))
	for i, q := range req.Questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			id = uuid.NewString()
		}
		options := make([]string, len(q.Options))
		for j, opt := range q.Options {
			options[j] = strings.TrimSpace(opt)
		}
		questions[i] = models.QuizQuestion{
			ID:            id,
			Question:      strings.TrimSpace(q.Question),
			Options:       options,
			CorrectAnswer: *q.CorrectAnswer,
		}
	}
	passing := progress.DefaultPassingScore(len(questions))
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}
	if err := progress.ValidateQuiz(questions, passing); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return questions, passing, nil
}

func (h *Handler) findQuiz(lessonID uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := h.DB.First(&quiz, "lesson_id = ?", lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("quiz: %w", services.ErrNotFound)
		}
		return nil, err
	}
	return &quiz, nil
}

// GetQuiz returns the full quiz to the course owner and admins, and the form without
// answers to enrolled students.
func (h *Handler) GetQuiz(c *fiber.Ctx) error {
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
	quiz, err := h.findQuiz(lesson.ID)
	if err != nil {
		return respondError(c, err)
	}
	course, err := h.findCourse(c.UserContext(), lesson.CourseID)
	if err != nil {
		return respondError(c, err)
	}
	if actor.CanManageCourse(course) {
		return c.JSON(quiz)
	}
	return c.JSON(quiz.Public())
}

func (h *Handler) CreateQuiz(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	var req QuizRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	questions, passing, err := buildQuiz(req)
	if err != nil {
		return respondError(c, err)
	}

	if err := ensureNoQuiz(h.DB, lesson.ID); err != nil {
		return respondError(c, err)
	}

	quiz := models.Quiz{
		LessonID:     lesson.ID,
		Questions:    datatypes.NewJSONSlice(questions),
		PassingScore: passing,
	}
	if err := h.DB.Create(&quiz).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondError(c, fmt.Errorf("%w: this lesson already has a quiz", services.ErrConflict))
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(quiz)
}

// UpdateQuiz replaces the questions. Stored scores and passes are kept as recorded.
func (h *Handler) UpdateQuiz(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	quiz, err := h.findQuiz(lesson.ID)
	if err != nil {
		return respondError(c, err)
	}
	var req QuizRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	questions, passing, err := buildQuiz(req)
	if err != nil {
		return respondError(c, err)
	}

	quiz.Questions = datatypes.NewJSONSlice(questions)
	quiz.PassingScore = passing
	if err := h.DB.Model(quiz).Updates(map[string]interface{}{
		"questions":     quiz.Questions,
		"passing_score": passing,
	}).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(quiz)
}

func (h *Handler) DeleteQuiz(c *fiber.Ctx) error {
	lesson, err := h.managedLesson(c)
	if err != nil {
		return respondError(c, err)
	}
	res := h.DB.Where("lesson_id = ?", lesson.ID).Delete(&models.Quiz{})
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return respondError(c, fmt.Errorf("quiz: %w", services.ErrNotFound))
	}
	return c.JSON(fiber.Map{"message": "Quiz deleted successfully"})
}

func ensureNoQuiz(db *gorm.DB, lessonID uuid.UUID) error {
	var existing int64
	if err := db.Model(&models.Quiz{}).Where("lesson_id = ?", lessonID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("%w: this lesson already has a quiz", services.ErrConflict)
	}
	return nil
}
