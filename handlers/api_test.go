package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/anjiri1684/edutech_marketplace/configs"
	"github.com/anjiri1684/edutech_marketplace/database"
	"github.com/anjiri1684/edutech_marketplace/database/databasetest"
	"github.com/anjiri1684/edutech_marketplace/handlers"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/anjiri1684/edutech_marketplace/payments"
	"github.com/anjiri1684/edutech_marketplace/payments/paymentstest"
	"github.com/anjiri1684/edutech_marketplace/routes"
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t        *testing.T
	app      *fiber.App
	db       *gorm.DB
	provider *paymentstest.Provider
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := databasetest.New(t)
	provider := paymentstest.New()

	authSvc := services.NewAuthService(db, testSecret, time.Hour, nil)
	courseSvc := services.NewCourseService(db)
	teacherSvc := services.NewTeacherService(db, nil, nil, nil)
	paymentSvc := services.NewPaymentService(db, provider, services.PaymentServiceConfig{Timeout: time.Second})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(false)})
	routes.Register(app, routes.Handlers{
		JWTSecret:   testSecret,
		Auth:        handlers.NewAuthHandler(authSvc),
		Courses:     handlers.NewCourseHandler(courseSvc),
		Enrollments: handlers.NewEnrollmentHandler(services.NewEnrollmentService(db, nil)),
		Payments:    handlers.NewPaymentHandler(paymentSvc),
		Teachers:    handlers.NewTeacherHandler(teacherSvc, courseSvc),
		Admin:       handlers.NewAdminHandler(teacherSvc),
		Uploads:     handlers.NewUploadHandler(nil),
	})
	return &testAPI{t: t, app: app, db: db, provider: provider}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID   uuid.UUID `json:"id"`
		Role string    `json:"role"`
	} `json:"user"`
}

func (a *testAPI) register(role string) authData {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		"password":  "secret123",
		"firstName": "Test",
		"lastName":  role,
		"role":      role,
	})
	require.Equal(a.t, http.StatusCreated, status, env.Error)
	return decode[authData](a.t, env)
}

type idData struct {
	ID uuid.UUID `json:"id"`
}

// publishedCourse builds a course with the given number of lessons through
// the API and returns its id and lesson ids.
func (a *testAPI) publishedCourse(teacherToken string, lessons int) (uuid.UUID, []uuid.UUID) {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/courses", teacherToken, fiber.Map{
		"title": "Concurrency in Go", "description": "Channels and friends", "category": "programming", "price": 40,
	})
	require.Equal(a.t, http.StatusCreated, status, env.Error)
	courseID := decode[idData](a.t, env).ID

	status, env = a.do(http.MethodPost, fmt.Sprintf("/api/courses/%s/modules", courseID), teacherToken, fiber.Map{"title": "Intro", "position": 1})
	require.Equal(a.t, http.StatusCreated, status, env.Error)
	moduleID := decode[idData](a.t, env).ID

	var ids []uuid.UUID
	for i := 0; i < lessons; i++ {
		status, env = a.do(http.MethodPost, fmt.Sprintf("/api/courses/%s/modules/%s/lessons", courseID, moduleID), teacherToken,
			fiber.Map{"title": fmt.Sprintf("Lesson %d", i+1), "position": i + 1})
		require.Equal(a.t, http.StatusCreated, status, env.Error)
		ids = append(ids, decode[idData](a.t, env).ID)
	}

	status, env = a.do(http.MethodPatch, fmt.Sprintf("/api/courses/%s/publish", courseID), teacherToken, fiber.Map{"isPublished": true})
	require.Equal(a.t, http.StatusOK, status, env.Error)
	return courseID, ids
}

func TestHealthAndNotFound(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = api.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found", env.Error)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	student := api.register("STUDENT")
	assert.Equal(t, "STUDENT", student.User.Role)

	status, env := api.do(http.MethodGet, "/api/auth/me", student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, student.User.ID, decode[idData](t, env).ID)

	status, env = api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User not authenticated", env.Error)

	status, env = api.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", env.Error)

	status, env = api.do(http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "nobody@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", env.Error)

	status, env = api.do(http.MethodPost, "/api/auth/register", "", fiber.Map{"email": "not-an-email", "password": "secret123", "firstName": "A", "lastName": "B"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email must be a valid email", env.Error)
}

func TestEnrollmentAndProgressOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.register("TEACHER")
	student := api.register("STUDENT")
	courseID, lessons := api.publishedCourse(teacher.Token, 4)

	status, env := api.do(http.MethodPost, "/api/enrollments", student.Token, fiber.Map{"courseId": courseID})
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.Equal(t, "Enrolled successfully", env.Message)

	status, env = api.do(http.MethodPost, "/api/enrollments", student.Token, fiber.Map{"courseId": courseID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Already enrolled in this course", env.Error)

	type progressData struct {
		Progress    float64    `json:"progress"`
		CompletedAt *time.Time `json:"completedAt"`
	}
	want := []float64{25, 50, 75, 100}
	for i, lesson := range lessons {
		status, env = api.do(http.MethodPost, "/api/enrollments/progress", student.Token,
			fiber.Map{"courseId": courseID, "completedLessonId": lesson})
		require.Equal(t, http.StatusOK, status, env.Error)
		got := decode[progressData](t, env)
		assert.Equal(t, want[i], got.Progress)
		assert.Equal(t, i == len(lessons)-1, got.CompletedAt != nil)
	}

	status, env = api.do(http.MethodGet, "/api/enrollments/my-enrollments", student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]progressData](t, env), 1)

	// Teachers cannot enroll.
	status, env = api.do(http.MethodPost, "/api/enrollments", teacher.Token, fiber.Map{"courseId": courseID})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: STUDENT access required", env.Error)
}

func TestEnrollUnpublishedAndUnknownCourse(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.register("TEACHER")
	student := api.register("STUDENT")

	status, env := api.do(http.MethodPost, "/api/courses", teacher.Token, fiber.Map{
		"title": "Draft", "description": "Not ready", "category": "programming", "price": 100,
	})
	require.Equal(t, http.StatusCreated, status)
	draftID := decode[idData](t, env).ID

	status, env = api.do(http.MethodPost, "/api/enrollments", student.Token, fiber.Map{"courseId": draftID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Course is not published yet", env.Error)

	// Payment intents are not gated on publish state.
	status, env = api.do(http.MethodPost, "/api/payments/create-payment-intent", student.Token, fiber.Map{"courseId": draftID, "amount": 100})
	assert.Equal(t, http.StatusOK, status, env.Error)

	status, env = api.do(http.MethodPost, "/api/enrollments", student.Token, fiber.Map{"courseId": uuid.New()})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Course not found", env.Error)

	status, env = api.do(http.MethodPost, "/api/enrollments/progress", student.Token, fiber.Map{"courseId": draftID, "completedLessonId": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.register("TEACHER")
	student := api.register("STUDENT")
	courseID, _ := api.publishedCourse(teacher.Token, 1)

	status, env := api.do(http.MethodPost, "/api/payments/create-payment-intent", student.Token, fiber.Map{"courseId": courseID, "amount": 40})
	require.Equal(t, http.StatusOK, status, env.Error)
	intent := decode[services.IntentResult](t, env)
	assert.NotEmpty(t, intent.ClientSecret)

	api.provider.SetStatus(intent.PaymentIntentID, payments.StatusSucceeded)

	for i := 0; i < 2; i++ {
		status, env = api.do(http.MethodPost, "/api/payments/confirm-payment", "", fiber.Map{"paymentIntentId": intent.PaymentIntentID})
		require.Equal(t, http.StatusOK, status, env.Error)
		assert.Equal(t, "succeeded", decode[struct {
			Status string `json:"status"`
		}](t, env).Status)
	}

	status, env = api.do(http.MethodGet, fmt.Sprintf("/api/enrollments/status/%s", courseID), student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[struct {
		IsEnrolled bool `json:"isEnrolled"`
	}](t, env).IsEnrolled)

	status, env = api.do(http.MethodGet, "/api/payments/history", student.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	status, env = api.do(http.MethodGet, "/api/teacher/earnings", teacher.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 34.0, decode[services.TeacherEarnings](t, env).TotalEarnings, 0.001)
}

func TestConfirmPaymentErrors(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.register("TEACHER")
	student := api.register("STUDENT")
	courseID, _ := api.publishedCourse(teacher.Token, 1)

	status, env := api.do(http.MethodPost, "/api/payments/confirm-payment", "", fiber.Map{"paymentIntentId": "pi_unknown"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Payment not found", env.Error)

	status, env = api.do(http.MethodPost, "/api/payments/create-payment-intent", student.Token, fiber.Map{"courseId": courseID, "amount": 40})
	require.Equal(t, http.StatusOK, status)
	intent := decode[services.IntentResult](t, env)
	api.provider.SetStatus(intent.PaymentIntentID, payments.StatusFailed)

	status, env = api.do(http.MethodPost, "/api/payments/confirm-payment", "", fiber.Map{"paymentIntentId": intent.PaymentIntentID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Payment failed", env.Error)

	status, env = api.do(http.MethodPost, "/api/payments/confirm-payment", "", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "paymentIntentId is required", env.Error)

	status, env = api.do(http.MethodPost, "/api/payments/create-payment-intent", student.Token, fiber.Map{"courseId": courseID, "amount": -5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "amount must be greater than 0", env.Error)
}

func TestSubscriptionAndTeacherRoutes(t *testing.T) {
	api := newTestAPI(t)
	teacher := api.register("TEACHER")
	student := api.register("STUDENT")

	status, env := api.do(http.MethodPost, "/api/payments/create-subscription", teacher.Token, fiber.Map{"priceId": "price_123"})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.NotEmpty(t, decode[services.SubscriptionResult](t, env).SubscriptionID)

	status, _ = api.do(http.MethodPost, "/api/payments/create-subscription", student.Token, fiber.Map{"priceId": "price_123"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(http.MethodPut, "/api/teacher/profile", teacher.Token, fiber.Map{"bio": "Gopher", "experience": 5})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = api.do(http.MethodGet, "/api/teacher/stats", teacher.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decode[services.TeacherStats](t, env).TotalCourses)

	// Storage is not configured in tests.
	status, env = api.do(http.MethodGet, "/api/uploads/signature", teacher.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Success)
}

func TestAdminVerificationRoutes(t *testing.T) {
	api := newTestAPI(t)
	cfg := &config.AppConfig{AdminEmail: "admin@example.com", AdminPassword: "Admin@123", AdminFirstName: "A", AdminLastName: "B"}
	database.SeedAdmin(api.db, cfg)

	status, env := api.do(http.MethodPost, "/api/auth/login", "", fiber.Map{"email": cfg.AdminEmail, "password": cfg.AdminPassword})
	require.Equal(t, http.StatusOK, status, env.Error)
	admin := decode[authData](t, env)

	teacher := api.register("TEACHER")
	status, env = api.do(http.MethodGet, "/api/admin/teachers", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	teachers := decode[[]idData](t, env)
	require.Len(t, teachers, 1)

	// Nothing submitted yet.
	status, env = api.do(http.MethodPatch, fmt.Sprintf("/api/admin/teachers/%s/verification", teachers[0].ID), admin.Token, fiber.Map{"status": "APPROVED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = api.do(http.MethodGet, "/api/admin/teachers", teacher.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(http.MethodPatch, "/api/admin/teachers/not-a-uuid/verification", admin.Token, fiber.Map{"status": "APPROVED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid id", env.Error)
}

func (a *testAPI) webhook(signature string, event payments.WebhookEvent) (int, envelope) {
	a.t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(a.t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestPaymentWebhookStatusCodes(t *testing.T) {
	api := newTestAPI(t)
	event := payments.WebhookEvent{Type: payments.EventIntentUpdated, IntentID: "pi_unknown"}

	status, env := api.webhook("bad-signature", event)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid webhook signature", env.Error)

	// unknown intents are acknowledged so they are not redelivered
	status, _ = api.webhook(paymentstest.WebhookSecret, event)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, api.db.Migrator().DropTable(&models.Payment{}))
	status, env = api.webhook(paymentstest.WebhookSecret, event)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, env.Success)
}
