package services

import (
	"context"
	"errors"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres implementation of ProgressStore and AnalyticsStore.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// forUpdate locks the selected rows when running inside Transaction.
func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx ProgressStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) FindLesson(ctx context.Context, lessonID uuid.UUID) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", lessonID).Error; err != nil {
		return nil, notFound(err)
	}
	return &lesson, nil
}

func (s *GormStore) FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}

func (s *GormStore) FindQuizByLesson(ctx context.Context, lessonID uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.WithContext(ctx).First(&quiz, "lesson_id = ?", lessonID).Error; err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// GetOrInitLessonProgress inserts an empty row if none exists and then reads it back.
// Concurrent first touches race on the unique (user_id, lesson_id) index; the loser's
// insert is a no-op and both end up reading the same row.
func (s *GormStore) GetOrInitLessonProgress(ctx context.Context, userID uuid.UUID, lesson *models.Lesson) (*models.LessonProgress, Touch, error) {
	seed := models.LessonProgress{UserID: userID, LessonID: lesson.ID, CourseID: lesson.CourseID}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(&seed)
	if res.Error != nil {
		return nil, TouchExisting, res.Error
	}
	touch := TouchExisting
	if res.RowsAffected == 1 {
		touch = TouchCreated
	}

	var p models.LessonProgress
	if err := s.forUpdate(ctx).First(&p, "user_id = ? AND lesson_id = ?", userID, lesson.ID).Error; err != nil {
		return nil, touch, notFound(err)
	}
	return &p, touch, nil
}

func (s *GormStore) FindLessonProgress(ctx context.Context, userID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	var p models.LessonProgress
	if err := s.forUpdate(ctx).First(&p, "user_id = ? AND lesson_id = ?", userID, lessonID).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) SaveLessonProgress(ctx context.Context, p *models.LessonProgress) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (s *GormStore) CountQualifiedLessons(ctx context.Context, userID, courseID uuid.UUID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND is_qualified = ?", userID, courseID, true).
		Count(&n).Error
	return int(n), err
}

func (s *GormStore) FindCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	var cp models.CourseProgress
	if err := s.forUpdate(ctx).First(&cp, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
		return nil, notFound(err)
	}
	return &cp, nil
}

func (s *GormStore) SaveCourseProgress(ctx context.Context, cp *models.CourseProgress) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(cp).Error
}

func (s *GormStore) ListCourseProgressByUser(ctx context.Context, userID uuid.UUID) ([]models.CourseProgress, error) {
	var rows []models.CourseProgress
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListRecentLessonProgressByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).Preload("Lesson").
		Where("user_id = ?", userID).
		Order("last_watched_at DESC NULLS LAST").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListLessonProgressByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).Preload("Lesson").
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lesson_progresses.course_id = ?", userID, courseID).
		Order("lessons.lesson_order asc").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("created_at desc").
		Find(&courses).Error
	return courses, err
}

func (s *GormStore) ListQualifiedProgressByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).
		Where("course_id IN ? AND is_qualified = ?", courseIDs, true).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListLessonProgressByLesson(ctx context.Context, lessonID uuid.UUID) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("updated_at desc").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) PlatformCounts(ctx context.Context) (PlatformCounts, error) {
	var counts PlatformCounts
	db := s.db.WithContext(ctx)
	queries := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&counts.Courses, db.Model(&models.Course{})},
		{&counts.PublishedCourses, db.Model(&models.Course{}).Where("is_published = ?", true)},
		{&counts.Lessons, db.Model(&models.Lesson{})},
		{&counts.Enrollments, db.Model(&models.CourseProgress{})},
		{&counts.CompletedCourses, db.Model(&models.CourseProgress{}).Where("is_completed = ?", true)},
		{&counts.QualifiedLessons, db.Model(&models.LessonProgress{}).Where("is_qualified = ?", true)},
	}
	for _, q := range queries {
		if err := q.query.Count(q.dest).Error; err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func (s *GormStore) ListRecentLessonProgress(ctx context.Context, limit int) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).Preload("Lesson").
		Order("updated_at desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

var (
	_ ProgressStore  = (*GormStore)(nil)
	_ AnalyticsStore = (*GormStore)(nil)
)
