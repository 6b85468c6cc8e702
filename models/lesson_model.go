package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMinimumWatchPercentage = 80

type Lesson struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CourseID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_lesson_order" json:"course_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Order           int       `gorm:"column:lesson_order;not null;uniqueIndex:idx_course_lesson_order" json:"order"`
	VimeoVideoID    *string   `gorm:"size:64" json:"vimeo_video_id"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	IsPublished     bool      `gorm:"not null;default:true" json:"is_published"`

	// No gorm default here: an explicit 0 must not be replaced by the column default.
	MinimumWatchPercentage int `gorm:"not null" json:"minimum_watch_percentage"`

	Course *Course `gorm:"foreignkey:CourseID" json:"course,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
