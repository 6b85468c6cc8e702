package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Course struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	ThumbnailURL *string   `gorm:"size:255" json:"thumbnail_url"`
	Level        string    `gorm:"size:30;not null;default:'beginner'" json:"level"`
	Category     string    `gorm:"size:100" json:"category"`
	InstructorID uuid.UUID `gorm:"type:uuid;not null;index" json:"instructor_id"`
	IsPublished  bool      `gorm:"not null;default:false" json:"is_published"`

	// EnrolledStudents holds user ids as strings; it behaves as a set.
	EnrolledStudents pq.StringArray `gorm:"type:text[]" json:"-"`
	LessonsCount     int            `gorm:"not null;default:0" json:"lessons_count"`

	Instructor *User `gorm:"foreignkey:InstructorID" json:"instructor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Course) IsEnrolled(userID uuid.UUID) bool {
	id := userID.String()
	for _, s := range c.EnrolledStudents {
		if s == id {
			return true
		}
	}
	return false
}

// Enroll adds the user to the enrolled set and reports whether it was added.
func (c *Course) Enroll(userID uuid.UUID) bool {
	if c.IsEnrolled(userID) {
		return false
	}
	c.EnrolledStudents = append(c.EnrolledStudents, userID.String())
	return true
}

func (c *Course) EnrolledCount() int {
	return len(c.EnrolledStudents)
}

func (c *Course) OwnedBy(userID uuid.UUID) bool {
	return c.InstructorID == userID
}
