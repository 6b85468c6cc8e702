package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
)

type fakeBilling struct {
	expired  int64
	err      error
	calls    int
	subs     []models.Subscription
	from, to time.Time
}

func (f *fakeBilling) ExpireSubscriptions(ctx context.Context) (int64, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return f.expired, f.err
}

func (f *fakeBilling) ExpiringSubscriptions(_ context.Context, from, to time.Time) ([]models.Subscription, error) {
	f.from, f.to = from, to
	return f.subs, f.err
}

type sentEmail struct{ name, email, subject string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *fakeMailer) SendEmail(toName, toEmail, subject, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{toName, toEmail, subject})
}

func TestExpireSubscriptions(t *testing.T) {
	t.Run("runs with a deadline", func(t *testing.T) {
		billing := &fakeBilling{expired: 2}
		ExpireSubscriptions(billing)()
		if billing.calls != 1 {
			t.Fatalf("calls = %d, want 1", billing.calls)
		}
	})

	t.Run("errors are logged not raised", func(t *testing.T) {
		billing := &fakeBilling{err: errors.New("db down")}
		ExpireSubscriptions(billing)()
		if billing.calls != 1 {
			t.Fatalf("calls = %d, want 1", billing.calls)
		}
	})
}

func TestSendExpiryReminders(t *testing.T) {
	now := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 0, 3).Add(2 * time.Hour)
	billing := &fakeBilling{subs: []models.Subscription{
		{
			EndDate: &end,
			User:    &models.User{FullName: "Omar", Email: "omar@example.com"},
			Package: &models.SubscriptionPackage{Name: "Monthly"},
		},
		{EndDate: &end},
	}}
	mailer := &fakeMailer{}

	SendExpiryReminders(billing, mailer, func() time.Time { return now })()

	if !billing.from.Equal(now.AddDate(0, 0, 3)) || !billing.to.Equal(now.AddDate(0, 0, 4)) {
		t.Fatalf("window = %v..%v", billing.from, billing.to)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1 (rows without user or package are skipped)", len(mailer.sent))
	}
	if mailer.sent[0].email != "omar@example.com" || mailer.sent[0].subject != "Your Subscription is Ending Soon" {
		t.Fatalf("unexpected email %+v", mailer.sent[0])
	}
}
