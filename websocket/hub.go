package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aiqda/aiqda-backend/progress"
	"github.com/google/uuid"
)

const (
	TypePaymentReviewed     = "payment_reviewed"
	TypeApplicationReviewed = "application_reviewed"
	TypeLessonQualified     = "lesson_qualified"
	TypeCourseCompleted     = "course_completed"
	TypeCertificateIssued   = "certificate_issued"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type Notification struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

type delivery struct {
	userID       uuid.UUID
	notification Notification
}

// Hub fans notifications out to every open connection of a user. All writes happen on
// the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}

	mu      sync.RWMutex
	clients map[uuid.UUID]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, 256),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[Conn]struct{}),
	}
}

// Register adds the client. It returns false once Run has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Notify queues a notification for the user. It never blocks; when the queue is full the
// notification is dropped.
func (h *Hub) Notify(userID uuid.UUID, kind string, data interface{}) {
	select {
	case h.broadcast <- delivery{userID: userID, notification: Notification{Type: kind, Data: data, At: time.Now()}}:
	default:
		log.Printf("⚠️ Notification queue full, dropping %s for %s", kind, userID)
	}
}

// Connected reports how many connections the user has open.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Run owns the client set until ctx is cancelled, then closes every connection.
// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[Conn]struct{})
			}
			h.clients[client.UserID][client.Conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("Client registered: %s", client.UserID)
		case client := <-h.unregister:
			h.remove(client.UserID, client.Conn)
			log.Printf("Client unregistered: %s", client.UserID)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients[d.userID]))
	for conn := range h.clients[d.userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(d.notification); err != nil {
			log.Printf("Error sending %s to client %s: %v", d.notification.Type, d.userID, err)
			conn.Close()
			h.remove(d.userID, conn)
		}
	}
}

func (h *Hub) remove(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, userID)
	}
}

// HandleProgressEvent pushes qualification and completion events to the student.
func (h *Hub) HandleProgressEvent(_ context.Context, e progress.Event) {
	switch e.Kind {
	case progress.EventLessonQualified:
		h.Notify(e.UserID, TypeLessonQualified, e)
	case progress.EventCourseCompleted:
		h.Notify(e.UserID, TypeCourseCompleted, e)
	}
}
