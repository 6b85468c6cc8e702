package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
)

const brevoBaseURL = "https://api.brevo.com/v3"

// Mailer sends transactional email through Brevo. A nil *Mailer drops every message.
type Mailer struct {
	apiKey      string
	senderEmail string
	senderName  string
	baseURL     string
	client      *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewMailer returns nil when the Brevo key or sender is missing.
func NewMailer(cfg config.EmailConfig) *Mailer {
	if cfg.BrevoAPIKey == "" || cfg.SenderEmail == "" {
		log.Println("⚠️ Email service not configured. Missing BREVO_API_KEY or EMAIL_SENDER.")
		return nil
	}
	log.Println("✅ Email service initialized successfully.")
	return &Mailer{
		apiKey:      cfg.BrevoAPIKey,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		baseURL:     brevoBaseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the mailer at another Brevo-compatible host.
func (m *Mailer) WithBaseURL(baseURL string) *Mailer {
	m.baseURL = baseURL
	return m
}

func (m *Mailer) send(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": m.senderName, "email": m.senderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendEmail delivers one message and logs the outcome. It is meant to run in a goroutine.
func (m *Mailer) SendEmail(toName, toEmail, subject, htmlContent string) {
	if m == nil {
		log.Printf("Email client not initialized, skipping %q to %s", subject, toEmail)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := m.send(ctx, toEmail, toName, subject, htmlContent); err != nil {
		log.Printf("🔥 Failed to send email to %s: %v", toEmail, err)
		return
	}
	log.Printf("✅ Email sent successfully to %s", toEmail)
}
