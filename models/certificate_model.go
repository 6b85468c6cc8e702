package models

import (
	"time"

	"github.com/google/uuid"
)

type Certificate struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course" json:"user_id"`
	CourseID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course" json:"course_id"`
	CourseTitle    string    `gorm:"size:255;not null" json:"course_title"`
	CertificateURL string    `gorm:"type:text;not null" json:"certificate_url"`
	IssuedAt       time.Time `gorm:"not null" json:"issued_at"`

	User   *User   `gorm:"foreignkey:UserID" json:"-"`
	Course *Course `gorm:"foreignkey:CourseID" json:"course,omitempty"`
}
