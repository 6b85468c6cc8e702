package jobs

import (
	"context"
	"log"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/notifications"
)

const (
	jobTimeout = 2 * time.Minute

	// ReminderLeadDays is how far ahead of the end date students are reminded.
	ReminderLeadDays = 3
)

type SubscriptionExpirer interface {
	ExpireSubscriptions(ctx context.Context) (int64, error)
}

type ExpiringLister interface {
	ExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
}

type EmailSender interface {
	SendEmail(toName, toEmail, subject, htmlContent string)
}

// ExpireSubscriptions returns a cron func that marks lapsed subscriptions as expired.
func ExpireSubscriptions(billing SubscriptionExpirer) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := billing.ExpireSubscriptions(ctx)
		if err != nil {
			log.Printf("⚠️ Error expiring subscriptions: %v", err)
			return
		}
		if n > 0 {
			log.Printf("✅ Marked %d subscription(s) as expired.", n)
		}
	}
}

// SendExpiryReminders returns a daily cron func. Each run covers the one-day window that
// starts ReminderLeadDays from now, so a subscription is reminded once.
func SendExpiryReminders(billing ExpiringLister, mailer EmailSender, now func() time.Time) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		from := now().AddDate(0, 0, ReminderLeadDays)
		subs, err := billing.ExpiringSubscriptions(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			log.Printf("⚠️ Error checking for expiring subscriptions: %v", err)
			return
		}

		for _, sub := range subs {
			if sub.User == nil || sub.Package == nil || sub.EndDate == nil {
				continue
			}
			email := notifications.SubscriptionExpiringEmail(sub.Package.Name, sub.EndDate.Format("January 2, 2006"))
			mailer.SendEmail(sub.User.FullName, sub.User.Email, email.Subject, email.Body)
		}
		if len(subs) > 0 {
			log.Printf("✅ Sent %d subscription reminder(s).", len(subs))
		}
	}
}
