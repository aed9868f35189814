package jobregistry

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"time"
)

// EmailHandler sends the "send_email" job type. Kept close to the
// teacher's handler: simulate the send when SMTP credentials are not
// configured, so the demo path works without a real mail server.
type EmailHandler struct{}

func (h *EmailHandler) Type() string { return "send_email" }

func (h *EmailHandler) Execute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	to, _ := payload["to"].(string)
	subject, _ := payload["subject"].(string)
	body, _ := payload["body"].(string)
	from := getEnvOrDefault("SMTP_FROM", "noreply@example.com")

	if to == "" {
		return nil, fmt.Errorf("'to' field is required")
	}

	smtpHost := getEnvOrDefault("SMTP_HOST", "smtp.gmail.com")
	smtpPort := getEnvOrDefault("SMTP_PORT", "587")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	if smtpUser == "" || smtpPass == "" {
		log.Printf("jobregistry: SMTP credentials not configured, simulating email send")
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		msg := []byte(fmt.Sprintf(
			"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
			from, to, subject, body,
		))
		auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpHost)
		if err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, msg); err != nil {
			return nil, fmt.Errorf("failed to send email: %w", err)
		}
	}

	result := map[string]interface{}{
		"status":     "sent",
		"to":         to,
		"subject":    subject,
		"sent_at":    time.Now().Format(time.RFC3339),
		"message_id": fmt.Sprintf("msg-%d", time.Now().Unix()),
	}
	log.Printf("jobregistry: email sent to %s: %s", to, subject)
	return result, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
