package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/anjiri1684/edutech_marketplace/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// TeacherShare is the part of a course sale credited to the teacher.
	TeacherShare = 0.85
	// VerificationFee is charged once per teacher, in the platform currency.
	VerificationFee = 299.0
)

type PaymentServiceConfig struct {
	Timeout  time.Duration
	Currency string
	Notifier Notifier
	Mailer   Mailer
}

type PaymentService struct {
	db       *gorm.DB
	provider payments.Provider
	timeout  time.Duration
	currency string
	notifier Notifier
	mailer   Mailer
	now      func() time.Time
}

type IntentResult struct {
	ClientSecret    string    `json:"clientSecret"`
	PaymentIntentID string    `json:"paymentIntentId"`
	PaymentID       uuid.UUID `json:"paymentId"`
	Provider        string    `json:"provider"`
}

type SubscriptionResult struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
}

func NewPaymentService(db *gorm.DB, provider payments.Provider, cfg PaymentServiceConfig) *PaymentService {
	s := &PaymentService{
		db:       db,
		provider: provider,
		timeout:  cfg.Timeout,
		currency: strings.ToLower(cfg.Currency),
		notifier: cfg.Notifier,
		mailer:   cfg.Mailer,
		now:      time.Now,
	}
	if s.currency == "" {
		s.currency = "usd"
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.mailer == nil {
		s.mailer = logMailer{}
	}
	return s
}

func (s *PaymentService) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreatePaymentIntent opens a provider intent for a course purchase and
// records it locally as pending. The course's publish state is checked at
// enrollment time, not here.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, courseID uuid.UUID, amount float64) (*IntentResult, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}
	course, err := findCourse(db, courseID)
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		ID:        uuid.New(),
		StudentID: &student.ID,
		Amount:    amount,
	}
	meta := models.CourseEnrollmentMetadata{CourseID: course.ID}

	return s.openIntent(ctx, &payment, meta, course.Title, map[string]string{
		"studentId": student.ID.String(),
		"courseId":  course.ID.String(),
	})
}

// CreateVerificationOrder charges a teacher the one-off verification fee.
func (s *PaymentService) CreateVerificationOrder(ctx context.Context, userID uuid.UUID) (*IntentResult, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}
	if teacher.VerificationFeePaid {
		return nil, invalidState("Verification fee already paid")
	}

	payment := models.Payment{
		ID:        uuid.New(),
		TeacherID: &teacher.ID,
		Amount:    VerificationFee,
	}
	meta := models.TeacherVerificationMetadata{TeacherID: teacher.ID}

	return s.openIntent(ctx, &payment, meta, "Teacher verification fee", map[string]string{
		"teacherId": teacher.ID.String(),
	})
}

func (s *PaymentService) openIntent(ctx context.Context, payment *models.Payment, meta models.PaymentMetadata, description string, notes map[string]string) (*IntentResult, error) {
	if err := payment.SetMetadata(meta); err != nil {
		return nil, internal(err)
	}
	notes["purpose"] = string(payment.Purpose)
	notes["paymentId"] = payment.ID.String()

	pctx, cancel := s.providerContext(ctx)
	defer cancel()
	intent, err := s.provider.CreateIntent(pctx, payments.IntentRequest{
		Amount:      payment.Amount,
		Currency:    s.currency,
		Reference:   payment.ID.String(),
		Description: description,
		Metadata:    notes,
	})
	if err != nil {
		log.Printf("🔥 Failed to create %s intent for payment %s: %v", s.provider.Name(), payment.ID, err)
		return nil, providerError(err)
	}

	payment.Currency = s.currency
	payment.Provider = s.provider.Name()
	payment.ProviderPaymentID = intent.ID
	payment.Status = models.PaymentPending

	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, internal(err)
	}

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		PaymentID:       payment.ID,
		Provider:        payment.Provider,
	}, nil
}

// ConfirmPayment settles a payment from the provider's view of its intent.
// A payment that already succeeded is returned as is, so confirming twice
// never repeats the enrollment or the earning.
func (s *PaymentService) ConfirmPayment(ctx context.Context, intentID string) (*models.Payment, error) {
	return s.confirm(ctx, intentID, true)
}

// confirm with settle=false leaves payments the provider still reports as
// in flight untouched; webhooks and the reconciler use it.
func (s *PaymentService) confirm(ctx context.Context, intentID string, settle bool) (*models.Payment, error) {
	db := s.db.WithContext(ctx)

	var payment models.Payment
	if err := db.Where("provider_payment_id = ?", intentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Payment not found")
		}
		return nil, internal(err)
	}

	switch payment.Status {
	case models.PaymentSucceeded:
		return &payment, nil
	case models.PaymentFailed:
		return nil, &Error{Kind: KindProviderFailed, Message: "Payment failed"}
	}

	pctx, cancel := s.providerContext(ctx)
	intent, err := s.provider.RetrieveIntent(pctx, intentID)
	cancel()
	if err != nil {
		log.Printf("🔥 Failed to retrieve %s intent %s: %v", s.provider.Name(), intentID, err)
		return nil, providerError(err)
	}

	if intent.Status != payments.StatusSucceeded {
		if !settle && intent.Status == payments.StatusProcessing {
			return &payment, nil
		}
		return s.fail(db, &payment, intent)
	}

	applied, err := s.fulfil(db, &payment)
	if err != nil {
		log.Printf("🔥 Failed to fulfil payment %s: %v", payment.ID, err)
		return nil, internal(err)
	}
	if err := db.First(&payment, "id = ?", payment.ID).Error; err != nil {
		return nil, internal(err)
	}
	if applied {
		log.Printf("✅ Payment %s succeeded (%s)", payment.ID, payment.Purpose)
		s.announce(db, &payment, EventPaymentSucceeded)
	}
	return &payment, nil
}

func (s *PaymentService) fail(db *gorm.DB, payment *models.Payment, intent *payments.Intent) (*models.Payment, error) {
	res := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Update("status", models.PaymentFailed)
	if res.Error != nil {
		return nil, internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// someone else settled it first
		if err := db.First(payment, "id = ?", payment.ID).Error; err != nil {
			return nil, internal(err)
		}
		if payment.Status == models.PaymentSucceeded {
			return payment, nil
		}
	} else {
		payment.Status = models.PaymentFailed
		log.Printf("⚠️ Payment %s failed, provider status %q", payment.ID, intent.RawStatus)
		s.announce(db, payment, EventPaymentFailed)
	}
	return nil, &Error{Kind: KindProviderFailed, Message: "Payment failed"}
}

// fulfil moves the payment to succeeded and applies its purpose in one
// transaction. The conditional update is the idempotency guard: it reports
// false when another confirmation got there first.
func (s *PaymentService) fulfil(db *gorm.DB, payment *models.Payment) (bool, error) {
	meta, err := payment.DecodeMetadata()
	if err != nil {
		return false, err
	}

	applied := false
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":       models.PaymentSucceeded,
				"confirmed_at": s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		switch m := meta.(type) {
		case models.CourseEnrollmentMetadata:
			return fulfilEnrollment(tx, payment, m)
		case models.TeacherVerificationMetadata:
			return tx.Model(&models.Teacher{}).
				Where("id = ?", m.TeacherID).
				Update("verification_fee_paid", true).Error
		default:
			return fmt.Errorf("no fulfilment for purpose %q", payment.Purpose)
		}
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// fulfilEnrollment tolerates a student who enrolled through another path:
// the enrollment insert is skipped and the counter left alone, but the
// teacher is still paid for the sale.
func fulfilEnrollment(tx *gorm.DB, payment *models.Payment, m models.CourseEnrollmentMetadata) error {
	if payment.StudentID == nil {
		return fmt.Errorf("course payment %s has no student", payment.ID)
	}

	var course models.Course
	if err := tx.First(&course, "id = ?", m.CourseID).Error; err != nil {
		return fmt.Errorf("load course %s: %w", m.CourseID, err)
	}

	enrollment := models.Enrollment{StudentID: *payment.StudentID, CourseID: course.ID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		if err := incrementEnrollments(tx, course.ID); err != nil {
			return err
		}
	}

	earning := models.Earning{
		TeacherID:   course.TeacherID,
		PaymentID:   &payment.ID,
		CourseID:    &course.ID,
		Amount:      teacherShare(payment.Amount),
		Source:      models.EarningSourceCourseSale,
		Description: fmt.Sprintf("Sale of %s", course.Title),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&earning).Error
}

func teacherShare(amount float64) float64 {
	return math.Round(amount*TeacherShare*100) / 100
}

// announce runs after commit; nothing here can undo the payment.
func (s *PaymentService) announce(db *gorm.DB, payment *models.Payment, eventType string) {
	var user models.User
	var err error
	switch {
	case payment.StudentID != nil:
		err = db.Joins("JOIN students ON students.user_id = users.id").
			Where("students.id = ?", *payment.StudentID).First(&user).Error
	case payment.TeacherID != nil:
		err = db.Joins("JOIN teachers ON teachers.user_id = users.id").
			Where("teachers.id = ?", *payment.TeacherID).First(&user).Error
	default:
		return
	}
	if err != nil {
		log.Printf("⚠️ No user found for payment %s: %v", payment.ID, err)
		return
	}

	s.notifier.Notify(user.ID, eventType, payment)

	if eventType == EventPaymentSucceeded {
		subject := "Payment received"
		body := fmt.Sprintf("<p>Hi %s,</p><p>We received your payment of %.2f %s. Thank you!</p>",
			user.FirstName, payment.Amount, strings.ToUpper(payment.Currency))
		go s.mailer.SendEmail(user.FullName(), user.Email, subject, body)
	}
}

// CreateSubscription starts the teacher's tutor-stand plan with the provider.
// The local record stays INACTIVE until the provider reports it active.
func (s *PaymentService) CreateSubscription(ctx context.Context, userID uuid.UUID, priceID string) (*SubscriptionResult, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}

	pctx, cancel := s.providerContext(ctx)
	defer cancel()
	sub, err := s.provider.CreateSubscription(pctx, payments.SubscriptionRequest{
		Email:    teacher.User.Email,
		PriceID:  priceID,
		Metadata: map[string]string{"teacherId": teacher.ID.String()},
	})
	if err != nil {
		log.Printf("🔥 Failed to create subscription for teacher %s: %v", teacher.ID, err)
		return nil, providerError(err)
	}

	subID := sub.ID
	var record models.TutorStandSubscription
	err = db.Where(models.TutorStandSubscription{TeacherID: teacher.ID}).
		Assign(map[string]interface{}{
			"status":                 models.SubscriptionInactive,
			"amount":                 sub.UnitAmount,
			"stripe_subscription_id": &subID,
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		return nil, internal(err)
	}

	return &SubscriptionResult{SubscriptionID: sub.ID, ClientSecret: sub.ClientSecret}, nil
}

func (s *PaymentService) PaymentHistory(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var history []models.Payment
	if err := db.Where("student_id = ?", student.ID).Order("created_at DESC").Find(&history).Error; err != nil {
		return nil, internal(err)
	}
	return history, nil
}

// VerifySignedPayment handles the checkout callback of providers that sign
// the (order, payment) pair, then confirms the order.
func (s *PaymentService) VerifySignedPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Payment, error) {
	verifier, ok := s.provider.(payments.SignatureVerifier)
	if !ok {
		return nil, &Error{Kind: KindUnsupported, Message: "Signed payment verification is not supported by the configured payment provider"}
	}
	if err := verifier.VerifySignature(orderID, paymentID, signature); err != nil {
		log.Printf("⚠️ Rejected payment signature for order %s", orderID)
		return nil, providerError(err)
	}
	return s.ConfirmPayment(ctx, orderID)
}

// HandleWebhook applies a signed provider event. Events about payments we
// do not know, or that already failed, are acknowledged and dropped.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	decoder, ok := s.provider.(payments.EventDecoder)
	if !ok {
		return &Error{Kind: KindUnsupported, Message: "Webhooks are not supported by the configured payment provider"}
	}
	event, err := decoder.DecodeEvent(payload, signature)
	if err != nil {
		log.Printf("⚠️ Webhook signature verification failed: %v", err)
		return validation("Invalid webhook signature")
	}

	switch event.Type {
	case payments.EventIntentUpdated:
		_, err := s.confirm(ctx, event.IntentID, false)
		switch KindOf(err) {
		case KindNotFound, KindProviderFailed:
			log.Printf("Webhook for intent %s ignored: %v", event.IntentID, err)
			return nil
		}
		return err
	case payments.EventSubscriptionUpdated:
		return s.syncSubscription(ctx, event.Subscription)
	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
		return nil
	}
}

func (s *PaymentService) syncSubscription(ctx context.Context, sub *payments.Subscription) error {
	if sub == nil {
		return nil
	}
	db := s.db.WithContext(ctx)

	var record models.TutorStandSubscription
	if err := db.Where("stripe_subscription_id = ?", sub.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Subscription %s has no local record", sub.ID)
			return nil
		}
		return internal(err)
	}

	status := subscriptionStatus(sub.Status)
	err := db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": status}
		if sub.CurrentPeriodEnd != nil {
			updates["current_period_end"] = *sub.CurrentPeriodEnd
		}
		if err := tx.Model(&record).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(&models.Teacher{}).
			Where("id = ?", record.TeacherID).
			Update("tutor_stand_active", status == models.SubscriptionActive).Error
	})
	if err != nil {
		return internal(err)
	}
	log.Printf("✅ Subscription %s is now %s", sub.ID, status)
	return nil
}

func subscriptionStatus(providerStatus string) string {
	switch providerStatus {
	case "active", "trialing":
		return models.SubscriptionActive
	case "canceled", "unpaid", "incomplete_expired":
		return models.SubscriptionCancelled
	default:
		return models.SubscriptionInactive
	}
}

// ReconcilePending re-checks payments left pending for longer than
// olderThan. Intents still in flight stay pending. It returns how many
// payments reached a terminal state.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	var stale []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, s.now().Add(-olderThan)).
		Order("created_at").
		Find(&stale).Error
	if err != nil {
		return 0, internal(err)
	}

	settled := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			break
		}
		payment, err := s.confirm(ctx, p.ProviderPaymentID, false)
		switch {
		case err == nil && payment.Status != models.PaymentPending:
			settled++
		case KindOf(err) == KindProviderFailed:
			settled++
		case err != nil:
			log.Printf("⚠️ Could not reconcile payment %s: %v", p.ID, err)
		}
	}
	return settled, nil
}
