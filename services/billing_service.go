package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingService owns the subscription and manual-payment lifecycle.
type BillingService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{db: db, now: time.Now}
}

type PaymentSubmission struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Amount         float64
	Currency       string
	Reference      string
	ProofFileURL   string
}

// CheckNewSubscription refuses a request while the user holds a pending subscription or
// one that is still active at now.
func CheckNewSubscription(existing []models.Subscription, now time.Time) error {
	for _, sub := range existing {
		if sub.Status == models.SubscriptionPending {
			return fmt.Errorf("%w: you already have a pending subscription", ErrConflict)
		}
		if sub.ActiveAt(now) {
			return fmt.Errorf("%w: you already have an active subscription", ErrConflict)
		}
	}
	return nil
}

// CheckPaymentSubmission allows a payment only for the owner's pending subscription with no
// payment under review or approved.
func CheckPaymentSubmission(sub *models.Subscription, userID uuid.UUID, payments []models.Payment) error {
	if sub.UserID != userID {
		return fmt.Errorf("subscription: %w", ErrNotFound)
	}
	if sub.Status != models.SubscriptionPending {
		return fmt.Errorf("%w: payments can only be submitted for a pending subscription", ErrConflict)
	}
	for _, p := range payments {
		if p.Status != models.PaymentRejected {
			return fmt.Errorf("%w: a payment for this subscription is already %s", ErrConflict, p.Status)
		}
	}
	return nil
}

// ApprovePaymentRecord marks the payment approved and activates its subscription.
func ApprovePaymentRecord(p *models.Payment, sub *models.Subscription, pkg *models.SubscriptionPackage, reviewer uuid.UUID, now time.Time) error {
	if p.Status != models.PaymentSubmitted {
		return fmt.Errorf("%w: payment is already %s", ErrConflict, p.Status)
	}
	if sub.Status != models.SubscriptionPending {
		return fmt.Errorf("%w: subscription is %s", ErrConflict, sub.Status)
	}
	p.Status = models.PaymentApproved
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.RejectionReason = nil
	sub.Activate(pkg.DurationDays, now)
	return nil
}

// RejectPaymentRecord marks the payment rejected. The subscription stays pending.
func RejectPaymentRecord(p *models.Payment, reviewer uuid.UUID, reason string, now time.Time) error {
	if p.Status != models.PaymentSubmitted {
		return fmt.Errorf("%w: payment is already %s", ErrConflict, p.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: a rejection reason is required", ErrValidation)
	}
	p.Status = models.PaymentRejected
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.RejectionReason = &reason
	return nil
}

func (s *BillingService) RequestSubscription(ctx context.Context, userID, packageID uuid.UUID) (*models.Subscription, error) {
	now := s.now()
	var sub models.Subscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// one request at a time per user
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&models.User{}, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("user: %w", notFound(err))
		}

		var pkg models.SubscriptionPackage
		if err := tx.First(&pkg, "id = ? AND is_active = ?", packageID, true).Error; err != nil {
			return fmt.Errorf("package: %w", notFound(err))
		}

		var existing []models.Subscription
		if err := tx.Where("user_id = ? AND status IN ?", userID, []string{models.SubscriptionPending, models.SubscriptionActive}).
			Find(&existing).Error; err != nil {
			return err
		}
		if err := CheckNewSubscription(existing, now); err != nil {
			return err
		}

		sub = models.Subscription{UserID: userID, PackageID: pkg.ID, Status: models.SubscriptionPending}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		sub.Package = &pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindPendingSubscription returns the user's subscription when it can still take a payment.
// Used before the proof file is uploaded.
func (s *BillingService) FindPendingSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Preload("Package").First(&sub, "id = ?", subscriptionID).Error; err != nil {
		return nil, fmt.Errorf("subscription: %w", notFound(err))
	}
	var payments []models.Payment
	if err := s.db.WithContext(ctx).Where("subscription_id = ?", sub.ID).Find(&payments).Error; err != nil {
		return nil, err
	}
	if err := CheckPaymentSubmission(&sub, userID, payments); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *BillingService) SubmitPayment(ctx context.Context, in PaymentSubmission) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", in.SubscriptionID).Error; err != nil {
			return fmt.Errorf("subscription: %w", notFound(err))
		}
		var payments []models.Payment
		if err := tx.Where("subscription_id = ?", sub.ID).Find(&payments).Error; err != nil {
			return err
		}
		if err := CheckPaymentSubmission(&sub, in.UserID, payments); err != nil {
			return err
		}

		payment = models.Payment{
			UserID:         in.UserID,
			SubscriptionID: sub.ID,
			Amount:         in.Amount,
			Currency:       strings.ToUpper(in.Currency),
			Reference:      strings.TrimSpace(in.Reference),
			ProofFileURL:   in.ProofFileURL,
			Status:         models.PaymentSubmitted,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Payment %s submitted for subscription %s", payment.ID, payment.SubscriptionID)
	return &payment, nil
}

// reviewPayment locks the payment and its subscription and applies fn to them.
func (s *BillingService) reviewPayment(ctx context.Context, paymentID uuid.UUID, fn func(p *models.Payment, sub *models.Subscription, pkg *models.SubscriptionPackage, now time.Time) error) (*models.Payment, error) {
	now := s.now()
	var payment models.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", paymentID).Error; err != nil {
			return fmt.Errorf("payment: %w", notFound(err))
		}
		var sub models.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", payment.SubscriptionID).Error; err != nil {
			return fmt.Errorf("subscription: %w", notFound(err))
		}
		var pkg models.SubscriptionPackage
		if err := tx.First(&pkg, "id = ?", sub.PackageID).Error; err != nil {
			return fmt.Errorf("package: %w", notFound(err))
		}

		if err := fn(&payment, &sub, &pkg, now); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&payment).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&sub).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, "id = ?", payment.UserID).Error; err != nil {
			return fmt.Errorf("user: %w", notFound(err))
		}
		sub.Package = &pkg
		payment.Subscription = &sub
		payment.User = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ApprovePayment approves the payment and activates the subscription in one transaction.
func (s *BillingService) ApprovePayment(ctx context.Context, paymentID, reviewerID uuid.UUID) (*models.Payment, error) {
	return s.reviewPayment(ctx, paymentID, func(p *models.Payment, sub *models.Subscription, pkg *models.SubscriptionPackage, now time.Time) error {
		return ApprovePaymentRecord(p, sub, pkg, reviewerID, now)
	})
}

func (s *BillingService) RejectPayment(ctx context.Context, paymentID, reviewerID uuid.UUID, reason string) (*models.Payment, error) {
	return s.reviewPayment(ctx, paymentID, func(p *models.Payment, _ *models.Subscription, _ *models.SubscriptionPackage, now time.Time) error {
		return RejectPaymentRecord(p, reviewerID, reason, now)
	})
}

func (s *BillingService) CancelSubscription(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", subscriptionID).Error; err != nil {
			return fmt.Errorf("subscription: %w", notFound(err))
		}
		switch sub.Status {
		case models.SubscriptionCancelled, models.SubscriptionExpired:
			return fmt.Errorf("%w: subscription is already %s", ErrConflict, sub.Status)
		}
		sub.Status = models.SubscriptionCancelled
		return tx.Model(&sub).Update("status", sub.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExpireSubscriptions marks active subscriptions whose end date has passed as expired.
func (s *BillingService) ExpireSubscriptions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", models.SubscriptionActive, s.now()).
		Update("status", models.SubscriptionExpired)
	return res.RowsAffected, res.Error
}

// ExpiringSubscriptions lists active subscriptions whose end date falls in [from, to).
func (s *BillingService) ExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).Preload("User").Preload("Package").
		Where("status = ? AND end_date >= ? AND end_date < ?", models.SubscriptionActive, from, to).
		Order("end_date ASC").
		Find(&subs).Error
	return subs, err
}

// CurrentSubscription returns the user's newest subscription that is pending or active.
func (s *BillingService) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Preload("Package").
		Where("user_id = ? AND status IN ?", userID, []string{models.SubscriptionPending, models.SubscriptionActive}).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
