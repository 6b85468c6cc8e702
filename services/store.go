package services

import (
	"context"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
)

// ProgressStore is the persistence the progress engine needs. Lookups return ErrNotFound
// when the record is missing. Inside Transaction, progress reads lock the row.
type ProgressStore interface {
	FindLesson(ctx context.Context, lessonID uuid.UUID) (*models.Lesson, error)
	FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error)
	FindQuizByLesson(ctx context.Context, lessonID uuid.UUID) (*models.Quiz, error)

	Transaction(ctx context.Context, fn func(tx ProgressStore) error) error

	GetOrInitLessonProgress(ctx context.Context, userID uuid.UUID, lesson *models.Lesson) (*models.LessonProgress, Touch, error)
	FindLessonProgress(ctx context.Context, userID, lessonID uuid.UUID) (*models.LessonProgress, error)
	SaveLessonProgress(ctx context.Context, p *models.LessonProgress) error
	CountQualifiedLessons(ctx context.Context, userID, courseID uuid.UUID) (int, error)

	FindCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error)
	SaveCourseProgress(ctx context.Context, cp *models.CourseProgress) error
}

// PlatformCounts are the platform-wide totals shown on the admin overview.
type PlatformCounts struct {
	Courses          int64 `json:"total_courses"`
	PublishedCourses int64 `json:"published_courses"`
	Lessons          int64 `json:"total_lessons"`
	Enrollments      int64 `json:"total_enrollments"`
	CompletedCourses int64 `json:"completed_courses"`
	QualifiedLessons int64 `json:"qualified_lessons"`
}

// AnalyticsStore is the read-only query surface behind the reporting endpoints.
type AnalyticsStore interface {
	FindLesson(ctx context.Context, lessonID uuid.UUID) (*models.Lesson, error)
	FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error)
	FindCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error)

	// ListCourseProgressByUser returns the user's course rows, most recently updated first.
	ListCourseProgressByUser(ctx context.Context, userID uuid.UUID) ([]models.CourseProgress, error)
	// ListRecentLessonProgressByUser returns the most recently watched rows, unwatched last.
	ListRecentLessonProgressByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LessonProgress, error)
	// ListLessonProgressByUserCourse returns rows ordered by the lesson's position in the course.
	ListLessonProgressByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]models.LessonProgress, error)

	ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error)
	ListQualifiedProgressByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]models.LessonProgress, error)
	ListLessonProgressByLesson(ctx context.Context, lessonID uuid.UUID) ([]models.LessonProgress, error)

	PlatformCounts(ctx context.Context) (PlatformCounts, error)
	// ListRecentLessonProgress returns rows across all users, most recently updated first.
	ListRecentLessonProgress(ctx context.Context, limit int) ([]models.LessonProgress, error)
}
