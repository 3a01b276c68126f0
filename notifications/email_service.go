package notifications

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoPayload struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// EmailService delivers transactional e-mail through Brevo. A nil or
// unconfigured service logs and skips instead of failing.
type EmailService struct {
	client      *resty.Client
	endpoint    string
	senderEmail string
	senderName  string
}

func NewEmailService(apiKey, senderEmail, senderName string) *EmailService {
	if apiKey == "" || senderEmail == "" {
		log.Println("⚠️ Email service not configured. Missing API key or sender email.")
		return nil
	}
	log.Println("✅ Email service initialized successfully.")
	return newEmailService(brevoEndpoint, apiKey, senderEmail, senderName)
}

func newEmailService(endpoint, apiKey, senderEmail, senderName string) *EmailService {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("accept", "application/json").
		SetHeader("api-key", apiKey)
	return &EmailService{client: client, endpoint: endpoint, senderEmail: senderEmail, senderName: senderName}
}

func (s *EmailService) send(toName, toEmail, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %q", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}

	resp, err := s.client.R().
		SetBody(brevoPayload{
			Sender:      brevoContact{Name: s.senderName, Email: s.senderEmail},
			To:          []brevoContact{{Name: toName, Email: toEmail}},
			Subject:     subject,
			HTMLContent: htmlContent,
		}).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendEmail satisfies services.Mailer. Errors are logged.
func (s *EmailService) SendEmail(toName, toEmail, subject, htmlContent string) {
	if s == nil {
		log.Printf("Email client not initialized, skipping %q to %s", subject, toEmail)
		return
	}
	if err := s.send(toName, toEmail, subject, htmlContent); err != nil {
		log.Printf("🔥 Failed to send email to %s: %v", toEmail, err)
		return
	}
	log.Printf("✅ Email sent successfully to %s", toEmail)
}
