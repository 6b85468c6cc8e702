package models

import (
	"time"

	"github.com/google/uuid"
)

type LessonProgress struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"lesson_id"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	WatchPercentage float64    `gorm:"not null;default:0" json:"watch_percentage"`
	QuizPassed      bool       `gorm:"not null;default:false" json:"quiz_passed"`
	QuizScore       int        `gorm:"not null;default:0" json:"quiz_score"`
	QuizAttempts    int        `gorm:"not null;default:0" json:"quiz_attempts"`
	IsQualified     bool       `gorm:"not null;default:false;index" json:"is_qualified"`
	LastWatchedAt   *time.Time `json:"last_watched_at"`
	CompletedAt     *time.Time `json:"completed_at"`

	Lesson *Lesson `gorm:"foreignkey:LessonID" json:"lesson,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CourseProgress struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_course" json:"user_id"`
	CourseID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_course" json:"course_id"`
	CompletedLessons   int        `gorm:"not null;default:0" json:"completed_lessons"`
	TotalLessons       int        `gorm:"not null;default:0" json:"total_lessons"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progress_percentage"`
	IsCompleted        bool       `gorm:"not null;default:false" json:"is_completed"`
	StartedAt          time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`

	Course *Course `gorm:"foreignkey:CourseID" json:"course,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
