package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/progress"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type fakeConn struct {
	mu      sync.Mutex
	written []Notification
	fail    bool
	closed  bool
	got     chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{got: make(chan struct{}, 16)}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		f.got <- struct{}{}
		return errors.New("broken pipe")
	}
	f.written = append(f.written, v.(Notification))
	f.got <- struct{}{}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	user, other := uuid.New(), uuid.New()
	tab1, tab2, stranger := newFakeConn(), newFakeConn(), newFakeConn()
	hub.Register(&Client{UserID: user, Conn: tab1})
	hub.Register(&Client{UserID: user, Conn: tab2})
	hub.Register(&Client{UserID: other, Conn: stranger})

	hub.HandleProgressEvent(ctx, progress.Event{Kind: progress.EventCourseCompleted, UserID: user})
	waitFor(t, tab1.got)
	waitFor(t, tab2.got)

	if tab1.written[0].Type != TypeCourseCompleted {
		t.Fatalf("type = %q, want %q", tab1.written[0].Type, TypeCourseCompleted)
	}
	select {
	case <-stranger.got:
		t.Fatal("another user's connection received the notification")
	default:
	}
}

func TestHubIgnoresRoutineProgressEvents(t *testing.T) {
	hub := NewHub()
	hub.HandleProgressEvent(context.Background(), progress.Event{Kind: progress.EventWatchRecorded, UserID: uuid.New()})
	if len(hub.broadcast) != 0 {
		t.Fatal("watch events should not be pushed")
	}
}

func TestHubDropsBrokenConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	user := uuid.New()
	conn := newFakeConn()
	conn.fail = true
	hub.Register(&Client{UserID: user, Conn: conn})
	hub.Notify(user, TypePaymentReviewed, nil)
	waitFor(t, conn.got)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected(user) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("broken connection was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestParseUserID(t *testing.T) {
	userID := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	got, err := ParseUserID(signed, "secret")
	if err != nil || got != userID {
		t.Fatalf("ParseUserID = %v, %v; want %v", got, err, userID)
	}
	if _, err := ParseUserID(signed, "other-secret"); err == nil {
		t.Fatal("expected a signature error")
	}
}

func TestHubStopsAcceptingClientsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	user := uuid.New()
	conn := newFakeConn()
	client := &Client{UserID: user, Conn: conn}
	if !hub.Register(client) {
		t.Fatal("Register refused a client while the hub was running")
	}
	cancel()
	waitFor(t, stopped)

	if !conn.closed {
		t.Fatal("open connections should be closed on shutdown")
	}

	returned := make(chan struct{})
	go func() {
		hub.Unregister(client)
		if hub.Register(&Client{UserID: user, Conn: newFakeConn()}) {
			t.Error("Register accepted a client after shutdown")
		}
		close(returned)
	}()
	waitFor(t, returned)
}
