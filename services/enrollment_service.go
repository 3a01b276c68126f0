package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/anjiri1684/edutech_marketplace/database"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionListener is told when an enrollment first reaches 100%.
type CompletionListener interface {
	EnrollmentCompleted(enrollmentID uuid.UUID)
}

type EnrollmentService struct {
	db         *gorm.DB
	notifier   Notifier
	onComplete CompletionListener
	now        func() time.Time
}

func NewEnrollmentService(db *gorm.DB, notifier Notifier) *EnrollmentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &EnrollmentService{db: db, notifier: notifier, now: time.Now}
}

func (s *EnrollmentService) OnComplete(l CompletionListener) {
	s.onComplete = l
}

// Enroll creates the enrollment and bumps the course counter in one
// transaction. The (student, course) unique index decides races: the loser
// gets a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}
	course, err := findCourse(db, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, invalidState("Course is not published yet")
	}

	enrollment := models.Enrollment{StudentID: student.ID, CourseID: course.ID}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		return incrementEnrollments(tx, course.ID)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("Already enrolled in this course")
		}
		return nil, internal(err)
	}

	log.Printf("✅ Student %s enrolled in course %s", student.ID, course.ID)
	return s.load(db, enrollment.ID)
}

func (s *EnrollmentService) MyEnrollments(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	err = db.Preload("Course.Teacher.User", publicUser).
		Preload("Course.Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Course.Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("student_id = ?", student.ID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, internal(err)
	}
	return enrollments, nil
}

// UpdateProgress marks lessonID complete and recomputes progress against the
// course's current lesson count. Repeating a lesson is a no-op for progress;
// completedAt is stamped only by the call that first reaches 100%.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, userID, courseID uuid.UUID, lessonID string) (*models.Enrollment, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	var completedNow bool
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", student.ID, courseID).
			First(&enrollment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Enrollment not found")
			}
			return err
		}

		var totalLessons int64
		err = tx.Model(&models.Lesson{}).
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("modules.course_id = ?", courseID).
			Count(&totalLessons).Error
		if err != nil {
			return err
		}

		completedNow = enrollment.CompleteLesson(lessonID, int(totalLessons), s.now())
		return tx.Save(&enrollment).Error
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, internal(err)
	}

	if completedNow {
		log.Printf("✅ Enrollment %s completed", enrollment.ID)
		s.notifier.Notify(userID, EventEnrollmentCompleted, enrollment)
		if s.onComplete != nil {
			s.onComplete.EnrollmentCompleted(enrollment.ID)
		}
	}
	return s.load(db, enrollment.ID)
}

// Certificate returns the certificate issued for the caller's enrollment in
// courseID.
func (s *EnrollmentService) Certificate(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	if err := db.Where("student_id = ? AND course_id = ?", student.ID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Enrollment not found")
		}
		return nil, internal(err)
	}

	var cert models.Certificate
	if err := db.Where("enrollment_id = ?", enrollment.ID).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Certificate not issued yet")
		}
		return nil, internal(err)
	}
	return &cert, nil
}

func (s *EnrollmentService) load(db *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := db.Preload("Course.Teacher.User", publicUser).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, internal(err)
	}
	return &enrollment, nil
}

type EnrollmentStatus struct {
	IsEnrolled bool               `json:"isEnrolled"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}

func (s *EnrollmentService) Status(ctx context.Context, userID, courseID uuid.UUID) (*EnrollmentStatus, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	err = db.Where("student_id = ? AND course_id = ?", student.ID, courseID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &EnrollmentStatus{}, nil
	}
	if err != nil {
		return nil, internal(err)
	}
	return &EnrollmentStatus{IsEnrolled: true, Enrollment: &enrollment}, nil
}

type StudentStats struct {
	EnrolledCourses  int     `json:"enrolledCourses"`
	CompletedCourses int     `json:"completedCourses"`
	AverageProgress  float64 `json:"averageProgress"`
	TotalSpent       float64 `json:"totalSpent"`
}

func (s *EnrollmentService) DashboardStats(ctx context.Context, userID uuid.UUID) (*StudentStats, error) {
	db := s.db.WithContext(ctx)

	student, err := findStudent(db, userID)
	if err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	if err := db.Where("student_id = ?", student.ID).Find(&enrollments).Error; err != nil {
		return nil, internal(err)
	}

	stats := &StudentStats{EnrolledCourses: len(enrollments)}
	var progress float64
	for _, e := range enrollments {
		progress += e.Progress
		if e.CompletedAt != nil {
			stats.CompletedCourses++
		}
	}
	if len(enrollments) > 0 {
		stats.AverageProgress = math.Round(progress/float64(len(enrollments))*100) / 100
	}

	err = db.Model(&models.Payment{}).
		Where("student_id = ? AND status = ?", student.ID, models.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalSpent).Error
	if err != nil {
		return nil, internal(err)
	}
	return stats, nil
}
