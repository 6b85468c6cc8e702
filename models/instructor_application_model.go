package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

type InstructorApplication struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName        string     `gorm:"size:255;not null" json:"full_name"`
	Email           string     `gorm:"size:255;not null;index" json:"email"`
	Phone           string     `gorm:"size:50" json:"phone"`
	Bio             string     `gorm:"type:text;not null" json:"bio"`
	Expertise       string     `gorm:"size:255;not null" json:"expertise"`
	Status          string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	UserID          *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
