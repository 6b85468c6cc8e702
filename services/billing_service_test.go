package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/google/uuid"
)

func TestCheckNewSubscription(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	active := models.Subscription{}
	active.Activate(30, now.AddDate(0, 0, -1))
	lapsed := models.Subscription{}
	lapsed.Activate(30, now.AddDate(0, -2, 0))

	tests := []struct {
		name     string
		existing []models.Subscription
		want     error
	}{
		{"first subscription", nil, nil},
		{"pending blocks", []models.Subscription{{Status: models.SubscriptionPending}}, services.ErrConflict},
		{"active blocks", []models.Subscription{active}, services.ErrConflict},
		{"active past its end date does not block", []models.Subscription{lapsed}, nil},
		{"cancelled does not block", []models.Subscription{{Status: models.SubscriptionCancelled}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.CheckNewSubscription(tt.existing, now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckPaymentSubmission(t *testing.T) {
	owner := uuid.New()
	pending := &models.Subscription{UserID: owner, Status: models.SubscriptionPending}

	tests := []struct {
		name     string
		sub      *models.Subscription
		userID   uuid.UUID
		payments []models.Payment
		want     error
	}{
		{"first payment", pending, owner, nil, nil},
		{"someone else's subscription", pending, uuid.New(), nil, services.ErrNotFound},
		{"subscription already active", &models.Subscription{UserID: owner, Status: models.SubscriptionActive}, owner, nil, services.ErrConflict},
		{"payment under review", pending, owner, []models.Payment{{Status: models.PaymentSubmitted}}, services.ErrConflict},
		{"approved payment", pending, owner, []models.Payment{{Status: models.PaymentApproved}}, services.ErrConflict},
		{"resubmit after rejection", pending, owner, []models.Payment{{Status: models.PaymentRejected}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.CheckPaymentSubmission(tt.sub, tt.userID, tt.payments)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApprovePaymentRecord(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	reviewer := uuid.New()
	pkg := &models.SubscriptionPackage{DurationDays: 90}

	p := &models.Payment{Status: models.PaymentSubmitted}
	sub := &models.Subscription{Status: models.SubscriptionPending}
	if err := services.ApprovePaymentRecord(p, sub, pkg, reviewer, now); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if p.Status != models.PaymentApproved || *p.ReviewedBy != reviewer || !p.ReviewedAt.Equal(now) {
		t.Errorf("unexpected payment after approval: %+v", p)
	}
	if sub.Status != models.SubscriptionActive {
		t.Errorf("subscription status = %s, want active", sub.Status)
	}
	if !sub.StartDate.Equal(now) || !sub.EndDate.Equal(now.AddDate(0, 0, 90)) {
		t.Errorf("subscription window = %v..%v", sub.StartDate, sub.EndDate)
	}

	t.Run("second review is a conflict", func(t *testing.T) {
		err := services.ApprovePaymentRecord(p, sub, pkg, reviewer, now)
		if !errors.Is(err, services.ErrConflict) {
			t.Fatalf("err = %v, want conflict", err)
		}
	})
	t.Run("cancelled subscription is a conflict", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentSubmitted}
		sub := &models.Subscription{Status: models.SubscriptionCancelled}
		err := services.ApprovePaymentRecord(p, sub, pkg, reviewer, now)
		if !errors.Is(err, services.ErrConflict) {
			t.Fatalf("err = %v, want conflict", err)
		}
		if p.Status != models.PaymentSubmitted {
			t.Error("payment must be untouched on conflict")
		}
	})
}

func TestRejectPaymentRecord(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	reviewer := uuid.New()

	p := &models.Payment{Status: models.PaymentSubmitted}
	if err := services.RejectPaymentRecord(p, reviewer, "   ", now); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank reason: err = %v, want validation", err)
	}
	if err := services.RejectPaymentRecord(p, reviewer, " amount does not match ", now); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if p.Status != models.PaymentRejected || *p.RejectionReason != "amount does not match" {
		t.Errorf("unexpected payment after rejection: %+v", p)
	}
	if err := services.RejectPaymentRecord(p, reviewer, "again", now); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("second rejection: err = %v, want conflict", err)
	}
}
