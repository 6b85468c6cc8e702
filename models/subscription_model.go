package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

type SubscriptionPackage struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Price        float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency     string    `gorm:"size:3;not null;default:'SAR'" json:"currency"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Subscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PackageID uuid.UUID  `gorm:"type:uuid;not null" json:"package_id"`
	Status    string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	User    *User                `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Package *SubscriptionPackage `gorm:"foreignkey:PackageID" json:"package,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants access at the given instant.
func (s Subscription) ActiveAt(t time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if s.EndDate != nil && !t.Before(*s.EndDate) {
		return false
	}
	return true
}

// Activate moves a pending subscription to active for the package duration starting at now.
func (s *Subscription) Activate(durationDays int, now time.Time) {
	start := now
	end := now.AddDate(0, 0, durationDays)
	s.Status = SubscriptionActive
	s.StartDate = &start
	s.EndDate = &end
}
