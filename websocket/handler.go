package websocket

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

// Handler serves notification sockets. The first frame must be
// {"type":"auth","token":"<jwt>"}; after that the server only writes.
func (h *Hub) Handler(jwtSecret string) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		var msg authMessage
		if err := c.ReadJSON(&msg); err != nil || msg.Type != "auth" {
			log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
			_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
			c.Close()
			return
		}
		userID, err := ParseUserID(msg.Token, jwtSecret)
		if err != nil {
			log.Printf("WebSocket auth failed: %v", err)
			_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
			c.Close()
			return
		}

		client := &Client{UserID: userID, Conn: c}
		if !h.Register(client) {
			_ = c.WriteJSON(fiber.Map{"error": "Server is shutting down"})
			c.Close()
			return
		}
		defer func() {
			h.Unregister(client)
			c.Close()
		}()
		_ = c.WriteJSON(fiber.Map{"type": "ready"})

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WebSocket read error for client %s: %v", userID, err)
				}
				return
			}
		}
	})
}

// ParseUserID validates an HS256 token and returns its user_id claim.
func ParseUserID(tokenString, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	raw, _ := claims["user_id"].(string)
	return uuid.Parse(raw)
}
