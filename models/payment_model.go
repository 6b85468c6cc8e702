package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentSubmitted = "submitted"
	PaymentApproved  = "approved"
	PaymentRejected  = "rejected"
)

// Payment is a manual bank-transfer claim reviewed by an admin.
type Payment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Amount          float64    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency        string     `gorm:"size:3;not null;default:'SAR'" json:"currency"`
	Reference       string     `gorm:"size:255;not null" json:"reference"`
	ProofFileURL    string     `gorm:"type:text;not null" json:"proof_file_url"`
	Status          string     `gorm:"size:20;not null;default:'submitted'" json:"status"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`

	User         *User         `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Subscription *Subscription `gorm:"foreignkey:SubscriptionID" json:"subscription,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
