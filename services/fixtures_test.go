package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func seedStudent(t *testing.T, db *gorm.DB) (models.User, models.Student) {
	t.Helper()
	user := models.User{
		Email:     fmt.Sprintf("student-%s@example.com", uuid.NewString()[:8]),
		Password:  "x",
		FirstName: "Sam",
		LastName:  "Student",
		Role:      models.RoleStudent,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)
	student := models.Student{UserID: user.ID}
	require.NoError(t, db.Create(&student).Error)
	return user, student
}

func seedTeacher(t *testing.T, db *gorm.DB) (models.User, models.Teacher) {
	t.Helper()
	user := models.User{
		Email:     fmt.Sprintf("teacher-%s@example.com", uuid.NewString()[:8]),
		Password:  "x",
		FirstName: "Tess",
		LastName:  "Teacher",
		Role:      models.RoleTeacher,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)
	teacher := models.Teacher{UserID: user.ID, VerificationStatus: models.VerificationNone}
	require.NoError(t, db.Create(&teacher).Error)
	return user, teacher
}

// seedCourse creates a course with one module holding the given number of
// lessons and returns it with the lessons preloaded.
func seedCourse(t *testing.T, db *gorm.DB, teacherID uuid.UUID, published bool, lessons int) models.Course {
	t.Helper()
	course := models.Course{
		TeacherID:   teacherID,
		Title:       "Go for Backend Engineers",
		Description: "Services, storage and testing",
		Category:    "programming",
		Price:       50,
	}
	require.NoError(t, db.Create(&course).Error)
	if published {
		require.NoError(t, db.Model(&course).Update("is_published", true).Error)
	}

	module := models.Module{CourseID: course.ID, Title: "Basics", Position: 1}
	require.NoError(t, db.Create(&module).Error)
	for i := 0; i < lessons; i++ {
		lesson := models.Lesson{ModuleID: module.ID, Title: fmt.Sprintf("Lesson %d", i+1), Position: i + 1}
		require.NoError(t, db.Create(&lesson).Error)
		module.Lessons = append(module.Lessons, lesson)
	}
	course.Modules = []models.Module{module}
	return course
}

func reloadCourse(t *testing.T, db *gorm.DB, id uuid.UUID) models.Course {
	t.Helper()
	var course models.Course
	require.NoError(t, db.First(&course, "id = ?", id).Error)
	return course
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}

type sentEvent struct {
	UserID uuid.UUID
	Type   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(userID uuid.UUID, eventType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Type: eventType})
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

type discardMailer struct{}

func (discardMailer) SendEmail(string, string, string, string) {}
