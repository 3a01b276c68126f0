package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/edutech_marketplace/database/databasetest"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/anjiri1684/edutech_marketplace/payments"
	"github.com/anjiri1684/edutech_marketplace/payments/paymentstest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db       *gorm.DB
	provider *paymentstest.Provider
	notifier *recordingNotifier
	svc      *PaymentService

	studentUser models.User
	student     models.Student
	teacherUser models.User
	teacher     models.Teacher
	course      models.Course
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		db:       databasetest.New(t),
		provider: paymentstest.New(),
		notifier: &recordingNotifier{},
	}
	f.svc = NewPaymentService(f.db, f.provider, PaymentServiceConfig{
		Timeout:  time.Second,
		Currency: "USD",
		Notifier: f.notifier,
		Mailer:   discardMailer{},
	})
	f.studentUser, f.student = seedStudent(t, f.db)
	f.teacherUser, f.teacher = seedTeacher(t, f.db)
	f.course = seedCourse(t, f.db, f.teacher.ID, true, 2)
	return f
}

func (f *paymentFixture) intent(t *testing.T, amount float64) *IntentResult {
	t.Helper()
	res, err := f.svc.CreatePaymentIntent(ctx, f.studentUser.ID, f.course.ID, amount)
	require.NoError(t, err)
	return res
}

func (f *paymentFixture) payment(t *testing.T, intentID string) models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, f.db.Where("provider_payment_id = ?", intentID).First(&p).Error)
	return p
}

func (f *paymentFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreatePaymentIntentRecordsPendingPayment(t *testing.T) {
	f := newPaymentFixture(t)

	res := f.intent(t, 49.99)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, "test", res.Provider)

	p := f.payment(t, res.PaymentIntentID)
	assert.Equal(t, res.PaymentID, p.ID)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, 49.99, p.Amount)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, models.PurposeCourseEnrollment, p.Purpose)
	require.NotNil(t, p.StudentID)
	assert.Equal(t, f.student.ID, *p.StudentID)

	meta, err := p.DecodeMetadata()
	require.NoError(t, err)
	assert.Equal(t, models.CourseEnrollmentMetadata{CourseID: f.course.ID}, meta)

	require.Len(t, f.provider.Created, 1)
	sent := f.provider.Created[0]
	assert.Equal(t, "course_enrollment", sent.Metadata["purpose"])
	assert.Equal(t, f.course.ID.String(), sent.Metadata["courseId"])
	assert.Equal(t, f.student.ID.String(), sent.Metadata["studentId"])
	assert.Equal(t, p.ID.String(), sent.Reference)
}

func TestCreatePaymentIntentIgnoresPublishState(t *testing.T) {
	f := newPaymentFixture(t)
	draft := seedCourse(t, f.db, f.teacher.ID, false, 1)

	_, err := f.svc.CreatePaymentIntent(ctx, f.studentUser.ID, draft.ID, 10)
	assert.NoError(t, err)
}

func TestCreatePaymentIntentNotFound(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreatePaymentIntent(ctx, f.studentUser.ID, uuid.New(), 10)
	requireKind(t, err, KindNotFound)
	_, err = f.svc.CreatePaymentIntent(ctx, f.teacherUser.ID, f.course.ID, 10)
	requireKind(t, err, KindNotFound)
	assert.Empty(t, f.provider.Created)
}

func TestCreatePaymentIntentProviderDown(t *testing.T) {
	f := newPaymentFixture(t)
	f.provider.CreateErr = fmt.Errorf("%w: connection refused", payments.ErrProviderFailure)

	_, err := f.svc.CreatePaymentIntent(ctx, f.studentUser.ID, f.course.ID, 10)
	requireKind(t, err, KindInternal)
	assert.EqualValues(t, 0, f.count(t, &models.Payment{}))
}

func TestConfirmPaymentFulfilsEnrollment(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)

	p, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, p.Status)
	assert.NotNil(t, p.ConfirmedAt)

	var enrollment models.Enrollment
	require.NoError(t, f.db.Where("student_id = ? AND course_id = ?", f.student.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, 1, reloadCourse(t, f.db, f.course.ID).TotalEnrollments)

	var earning models.Earning
	require.NoError(t, f.db.Where("payment_id = ?", p.ID).First(&earning).Error)
	assert.Equal(t, f.teacher.ID, earning.TeacherID)
	assert.Equal(t, 42.5, earning.Amount)
	assert.Equal(t, models.EarningSourceCourseSale, earning.Source)

	assert.Equal(t, 1, f.notifier.count(EventPaymentSucceeded))
}

func TestConfirmPaymentTwiceIsNoop(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)

	first, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	require.NoError(t, err)
	second, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.PaymentSucceeded, second.Status)
	assert.Equal(t, 1, f.provider.RetrieveCalls, "already succeeded payments skip the provider")
	assert.EqualValues(t, 1, f.count(t, &models.Enrollment{}))
	assert.EqualValues(t, 1, f.count(t, &models.Earning{}))
	assert.Equal(t, 1, reloadCourse(t, f.db, f.course.ID).TotalEnrollments)
	assert.Equal(t, 1, f.notifier.count(EventPaymentSucceeded))
}

func TestConfirmPaymentConcurrently(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.count(t, &models.Enrollment{}))
	assert.EqualValues(t, 1, f.count(t, &models.Earning{}))
	assert.Equal(t, 1, reloadCourse(t, f.db, f.course.ID).TotalEnrollments)
}

func TestConfirmPaymentWhenAlreadyEnrolled(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := NewEnrollmentService(f.db, nil).Enroll(ctx, f.studentUser.ID, f.course.ID)
	require.NoError(t, err)

	res := f.intent(t, 50)
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)

	p, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, p.Status)
	assert.EqualValues(t, 1, f.count(t, &models.Enrollment{}))
	assert.Equal(t, 1, reloadCourse(t, f.db, f.course.ID).TotalEnrollments)
	assert.EqualValues(t, 1, f.count(t, &models.Earning{}))
}

func TestConfirmPaymentFailed(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusFailed)

	_, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	requireKind(t, err, KindProviderFailed)
	assert.Equal(t, "Payment failed", err.(*Error).Message)
	assert.Equal(t, models.PaymentFailed, f.payment(t, res.PaymentIntentID).Status)
	assert.EqualValues(t, 0, f.count(t, &models.Enrollment{}))
	assert.EqualValues(t, 0, f.count(t, &models.Earning{}))

	// failed is terminal, even if the provider later changes its mind
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)
	_, err = f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	requireKind(t, err, KindProviderFailed)
	assert.Equal(t, 1, f.provider.RetrieveCalls)
	assert.Equal(t, 1, f.notifier.count(EventPaymentFailed))
}

func TestConfirmPaymentStillProcessingFails(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)

	_, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	requireKind(t, err, KindProviderFailed)
	assert.Equal(t, models.PaymentFailed, f.payment(t, res.PaymentIntentID).Status)
}

func TestConfirmPaymentUnknownIntent(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.ConfirmPayment(ctx, "pi_unknown")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Payment not found", err.(*Error).Message)
	assert.Equal(t, 0, f.provider.RetrieveCalls)
}

func TestConfirmPaymentTimeoutIsRetryable(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	f.provider.RetrieveErr = fmt.Errorf("%w: context deadline exceeded", payments.ErrProviderTimeout)

	_, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	requireKind(t, err, KindProviderTimeout)
	assert.Equal(t, models.PaymentPending, f.payment(t, res.PaymentIntentID).Status)

	f.provider.RetrieveErr = nil
	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)
	p, err := f.svc.ConfirmPayment(ctx, res.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, p.Status)
}

func TestCreateSubscription(t *testing.T) {
	f := newPaymentFixture(t)

	res, err := f.svc.CreateSubscription(ctx, f.teacherUser.ID, "price_tutor_stand")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SubscriptionID)
	assert.NotEmpty(t, res.ClientSecret)

	var record models.TutorStandSubscription
	require.NoError(t, f.db.Where("teacher_id = ?", f.teacher.ID).First(&record).Error)
	assert.Equal(t, models.SubscriptionInactive, record.Status)
	assert.Equal(t, 29.0, record.Amount)
	require.NotNil(t, record.StripeSubscriptionID)
	assert.Equal(t, res.SubscriptionID, *record.StripeSubscriptionID)

	// a second attempt replaces the pending subscription
	again, err := f.svc.CreateSubscription(ctx, f.teacherUser.ID, "price_tutor_stand")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &models.TutorStandSubscription{}))
	var replaced models.TutorStandSubscription
	require.NoError(t, f.db.Where("teacher_id = ?", f.teacher.ID).First(&replaced).Error)
	require.NotNil(t, replaced.StripeSubscriptionID)
	assert.Equal(t, again.SubscriptionID, *replaced.StripeSubscriptionID)
}

func TestCreateSubscriptionErrors(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreateSubscription(ctx, f.studentUser.ID, "price_x")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Teacher profile not found", err.(*Error).Message)

	f.provider.Unsupported = true
	_, err = f.svc.CreateSubscription(ctx, f.teacherUser.ID, "price_x")
	requireKind(t, err, KindUnsupported)
}

func TestPaymentHistory(t *testing.T) {
	f := newPaymentFixture(t)
	f.intent(t, 10)
	f.intent(t, 20)

	history, err := f.svc.PaymentHistory(ctx, f.studentUser.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	other, _ := seedStudent(t, f.db)
	history, err = f.svc.PaymentHistory(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.PaymentHistory(ctx, f.teacherUser.ID)
	requireKind(t, err, KindNotFound)
}

func TestVerificationFeeFlow(t *testing.T) {
	f := newPaymentFixture(t)

	res, err := f.svc.CreateVerificationOrder(ctx, f.teacherUser.ID)
	require.NoError(t, err)
	p := f.payment(t, res.PaymentIntentID)
	assert.Equal(t, VerificationFee, p.Amount)
	assert.Equal(t, models.PurposeTeacherVerification, p.Purpose)
	require.NotNil(t, p.TeacherID)
	assert.Nil(t, p.StudentID)

	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)

	_, err = f.svc.VerifySignedPayment(ctx, res.PaymentIntentID, "pay_1", "forged")
	requireKind(t, err, KindValidation)
	assert.Equal(t, models.PaymentPending, f.payment(t, res.PaymentIntentID).Status)

	confirmed, err := f.svc.VerifySignedPayment(ctx, res.PaymentIntentID, "pay_1", paymentstest.Signature(res.PaymentIntentID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, confirmed.Status)

	var teacher models.Teacher
	require.NoError(t, f.db.First(&teacher, "id = ?", f.teacher.ID).Error)
	assert.True(t, teacher.VerificationFeePaid)
	assert.EqualValues(t, 0, f.count(t, &models.Earning{}))
	assert.Equal(t, 1, f.notifier.count(EventPaymentSucceeded))

	_, err = f.svc.CreateVerificationOrder(ctx, f.teacherUser.ID)
	requireKind(t, err, KindInvalidState)
}

func webhookPayload(t *testing.T, event payments.WebhookEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestHandleWebhookIntentEvents(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.intent(t, 50)
	payload := webhookPayload(t, payments.WebhookEvent{Type: payments.EventIntentUpdated, IntentID: res.PaymentIntentID})

	err := f.svc.HandleWebhook(ctx, payload, "bad-signature")
	requireKind(t, err, KindValidation)

	// still processing: left pending for a later event
	require.NoError(t, f.svc.HandleWebhook(ctx, payload, paymentstest.WebhookSecret))
	assert.Equal(t, models.PaymentPending, f.payment(t, res.PaymentIntentID).Status)

	f.provider.SetStatus(res.PaymentIntentID, payments.StatusSucceeded)
	require.NoError(t, f.svc.HandleWebhook(ctx, payload, paymentstest.WebhookSecret))
	assert.Equal(t, models.PaymentSucceeded, f.payment(t, res.PaymentIntentID).Status)
	assert.EqualValues(t, 1, f.count(t, &models.Enrollment{}))

	// redelivery is harmless
	require.NoError(t, f.svc.HandleWebhook(ctx, payload, paymentstest.WebhookSecret))
	assert.EqualValues(t, 1, f.count(t, &models.Earning{}))

	unknown := webhookPayload(t, payments.WebhookEvent{Type: payments.EventIntentUpdated, IntentID: "pi_elsewhere"})
	assert.NoError(t, f.svc.HandleWebhook(ctx, unknown, paymentstest.WebhookSecret))
}

func TestHandleWebhookSubscriptionEvents(t *testing.T) {
	f := newPaymentFixture(t)
	res, err := f.svc.CreateSubscription(ctx, f.teacherUser.ID, "price_tutor_stand")
	require.NoError(t, err)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	active := webhookPayload(t, payments.WebhookEvent{
		Type:         payments.EventSubscriptionUpdated,
		Subscription: &payments.Subscription{ID: res.SubscriptionID, Status: "active", CurrentPeriodEnd: &periodEnd},
	})
	require.NoError(t, f.svc.HandleWebhook(ctx, active, paymentstest.WebhookSecret))

	var record models.TutorStandSubscription
	require.NoError(t, f.db.Where("teacher_id = ?", f.teacher.ID).First(&record).Error)
	assert.Equal(t, models.SubscriptionActive, record.Status)
	require.NotNil(t, record.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*record.CurrentPeriodEnd))

	var teacher models.Teacher
	require.NoError(t, f.db.First(&teacher, "id = ?", f.teacher.ID).Error)
	assert.True(t, teacher.TutorStandActive)

	cancelled := webhookPayload(t, payments.WebhookEvent{
		Type:         payments.EventSubscriptionUpdated,
		Subscription: &payments.Subscription{ID: res.SubscriptionID, Status: "canceled"},
	})
	require.NoError(t, f.svc.HandleWebhook(ctx, cancelled, paymentstest.WebhookSecret))
	require.NoError(t, f.db.First(&teacher, "id = ?", f.teacher.ID).Error)
	assert.False(t, teacher.TutorStandActive)
}

func TestReconcilePending(t *testing.T) {
	f := newPaymentFixture(t)
	paid := f.intent(t, 50)
	abandoned := f.intent(t, 50)
	inFlight := f.intent(t, 50)
	fresh := f.intent(t, 50)

	old := time.Now().Add(-time.Hour)
	for _, id := range []string{paid.PaymentIntentID, abandoned.PaymentIntentID, inFlight.PaymentIntentID} {
		require.NoError(t, f.db.Model(&models.Payment{}).
			Where("provider_payment_id = ?", id).
			UpdateColumn("created_at", old).Error)
	}
	f.provider.SetStatus(paid.PaymentIntentID, payments.StatusSucceeded)
	f.provider.SetStatus(abandoned.PaymentIntentID, payments.StatusFailed)
	f.provider.SetStatus(fresh.PaymentIntentID, payments.StatusSucceeded)

	settled, err := f.svc.ReconcilePending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	assert.Equal(t, models.PaymentSucceeded, f.payment(t, paid.PaymentIntentID).Status)
	assert.Equal(t, models.PaymentFailed, f.payment(t, abandoned.PaymentIntentID).Status)
	assert.Equal(t, models.PaymentPending, f.payment(t, inFlight.PaymentIntentID).Status)
	assert.Equal(t, models.PaymentPending, f.payment(t, fresh.PaymentIntentID).Status)
}

func TestTeacherShareRounding(t *testing.T) {
	assert.Equal(t, 42.5, teacherShare(50))
	assert.Equal(t, 16.99, teacherShare(19.99))
	assert.Equal(t, 0.0, teacherShare(0))
}
