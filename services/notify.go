package services

import (
	"log"

	"github.com/google/uuid"
)

const (
	EventPaymentSucceeded    = "payment.succeeded"
	EventPaymentFailed       = "payment.failed"
	EventEnrollmentCompleted = "enrollment.completed"
	EventCertificateIssued   = "certificate.issued"
	EventVerificationUpdated = "teacher.verification"
)

// Notifier pushes an event to every live connection of a user.
type Notifier interface {
	Notify(userID uuid.UUID, eventType string, data interface{})
}

// Mailer sends transactional e-mail. Delivery failures are the mailer's to
// log; callers never wait on them.
type Mailer interface {
	SendEmail(toName, toEmail, subject, htmlContent string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string, interface{}) {}

type logMailer struct{}

func (logMailer) SendEmail(_, toEmail, subject, _ string) {
	log.Printf("Email client not configured, skipping %q to %s", subject, toEmail)
}

type fanOut []Notifier

func (f fanOut) Notify(userID uuid.UUID, eventType string, data interface{}) {
	for _, n := range f {
		n.Notify(userID, eventType, data)
	}
}

// FanOut delivers every event to each non-nil notifier in order.
func FanOut(notifiers ...Notifier) Notifier {
	var f fanOut
	for _, n := range notifiers {
		if n != nil {
			f = append(f, n)
		}
	}
	if len(f) == 1 {
		return f[0]
	}
	return f
}
