package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db, now: time.Now}
}

type EnrollResult struct {
	CourseProgress *models.CourseProgress `json:"course_progress"`
	Touch          Touch                  `json:"-"`
}

// CheckEnrollment decides whether a student holding sub may enroll in course at now.
// sub may be nil when the student never subscribed.
func CheckEnrollment(sub *models.Subscription, course *models.Course, now time.Time) error {
	if !course.IsPublished {
		return fmt.Errorf("course: %w", ErrNotFound)
	}
	if sub == nil || !sub.ActiveAt(now) {
		return fmt.Errorf("%w: an active subscription is required to enroll", ErrForbidden)
	}
	return nil
}

// Enroll adds the user to the course and creates its progress row. Enrolling twice returns
// the existing row. TotalLessons is the number of published lessons at first enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*EnrollResult, error) {
	now := s.now()
	result := &EnrollResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&course, "id = ?", courseID).Error; err != nil {
			return fmt.Errorf("course: %w", notFound(err))
		}

		var sub models.Subscription
		var current *models.Subscription
		err := tx.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
			Order("end_date DESC").First(&sub).Error
		switch {
		case err == nil:
			current = &sub
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := CheckEnrollment(current, &course, now); err != nil {
			return err
		}

		if course.Enroll(userID) {
			if err := tx.Model(&course).Update("enrolled_students", course.EnrolledStudents).Error; err != nil {
				return err
			}
		}

		var published int64
		if err := tx.Model(&models.Lesson{}).
			Where("course_id = ? AND is_published = ?", courseID, true).
			Count(&published).Error; err != nil {
			return err
		}

		seed := models.CourseProgress{
			UserID:       userID,
			CourseID:     courseID,
			TotalLessons: int(published),
			StartedAt:    now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(&seed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			result.Touch = TouchCreated
		}

		var cp models.CourseProgress
		if err := tx.First(&cp, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
			return notFound(err)
		}
		result.CourseProgress = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Touch == TouchCreated {
		log.Printf("✅ User %s enrolled in course %s", userID, courseID)
	}
	return result, nil
}
