package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

type TeacherProfileInput struct {
	Bio            *string
	Specialization *string
	Experience     *int
	Education      *string
}

type TeacherEarnings struct {
	Earnings      []models.Earning `json:"earnings"`
	TotalEarnings float64          `json:"totalEarnings"`
}

type TeacherStats struct {
	TotalCourses     int64   `json:"totalCourses"`
	PublishedCourses int64   `json:"publishedCourses"`
	TotalStudents    int64   `json:"totalStudents"`
	TotalEarnings    float64 `json:"totalEarnings"`
	MonthEarnings    float64 `json:"monthEarnings"`
}

type TeacherService struct {
	db       *gorm.DB
	storage  FileStorage
	notifier Notifier
	mailer   Mailer
}

func NewTeacherService(db *gorm.DB, storage FileStorage, notifier Notifier, mailer Mailer) *TeacherService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if mailer == nil {
		mailer = logMailer{}
	}
	return &TeacherService{db: db, storage: storage, notifier: notifier, mailer: mailer}
}

func (s *TeacherService) Profile(ctx context.Context, userID uuid.UUID) (*models.Teacher, error) {
	var teacher models.Teacher
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Courses").
		Preload("TutorStandSubscription").
		Where("user_id = ?", userID).
		First(&teacher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Teacher profile not found")
		}
		return nil, internal(err)
	}
	return &teacher, nil
}

// UpdateProfile only touches the fields present in the input.
func (s *TeacherService) UpdateProfile(ctx context.Context, userID uuid.UUID, in TeacherProfileInput) (*models.Teacher, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.Specialization != nil {
		updates["specialization"] = *in.Specialization
	}
	if in.Experience != nil {
		if *in.Experience < 0 {
			return nil, validation("Experience cannot be negative")
		}
		updates["experience"] = *in.Experience
	}
	if in.Education != nil {
		updates["education"] = *in.Education
	}
	if len(updates) > 0 {
		if err := db.Model(teacher).Updates(updates).Error; err != nil {
			return nil, internal(err)
		}
	}
	return s.Profile(ctx, userID)
}

func (s *TeacherService) Earnings(ctx context.Context, userID uuid.UUID) (*TeacherEarnings, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}

	out := &TeacherEarnings{Earnings: []models.Earning{}}
	if err := db.Where("teacher_id = ?", teacher.ID).Order("created_at DESC").Find(&out.Earnings).Error; err != nil {
		return nil, internal(err)
	}
	for _, e := range out.Earnings {
		out.TotalEarnings += e.Amount
	}
	out.TotalEarnings = math.Round(out.TotalEarnings*100) / 100
	return out, nil
}

func (s *TeacherService) Stats(ctx context.Context, userID uuid.UUID) (*TeacherStats, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}

	var stats TeacherStats
	courses := db.Model(&models.Course{}).Where("teacher_id = ?", teacher.ID)
	if err := courses.Session(&gorm.Session{}).Count(&stats.TotalCourses).Error; err != nil {
		return nil, internal(err)
	}
	if err := courses.Session(&gorm.Session{}).Where("is_published = ?", true).Count(&stats.PublishedCourses).Error; err != nil {
		return nil, internal(err)
	}
	err = db.Model(&models.Course{}).
		Where("teacher_id = ?", teacher.ID).
		Select("COALESCE(SUM(total_enrollments), 0)").
		Scan(&stats.TotalStudents).Error
	if err != nil {
		return nil, internal(err)
	}
	err = db.Model(&models.Earning{}).
		Where("teacher_id = ?", teacher.ID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalEarnings).Error
	if err != nil {
		return nil, internal(err)
	}
	err = db.Model(&models.Earning{}).
		Where("teacher_id = ? AND created_at >= ?", teacher.ID, now.BeginningOfMonth()).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.MonthEarnings).Error
	if err != nil {
		return nil, internal(err)
	}
	return &stats, nil
}

var allowedDocumentExt = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

// UploadVerificationDocument stores the document and queues the teacher for
// review.
func (s *TeacherService) UploadVerificationDocument(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*models.Teacher, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, userID)
	if err != nil {
		return nil, err
	}
	if teacher.VerificationStatus == models.VerificationApproved {
		return nil, invalidState("Teacher is already verified")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedDocumentExt[ext] {
		return nil, validation("Only PDF, JPG and PNG documents are accepted")
	}
	if s.storage == nil {
		return nil, internal(errors.New("file storage not configured"))
	}

	resourceType := "image"
	if ext == ".pdf" {
		resourceType = "raw"
	}
	publicID := fmt.Sprintf("teacher_%s_%s", teacher.ID, uuid.NewString()[:8])
	url, err := s.storage.Upload(ctx, r, FolderVerifications, publicID, resourceType)
	if err != nil {
		log.Printf("🔥 Failed to upload verification document for teacher %s: %v", teacher.ID, err)
		return nil, internal(err)
	}

	err = db.Model(teacher).Updates(map[string]interface{}{
		"verification_document": url,
		"verification_status":   models.VerificationPending,
	}).Error
	if err != nil {
		return nil, internal(err)
	}
	return s.Profile(ctx, userID)
}

// ListTeachers is the admin review queue; an empty status lists everyone.
func (s *TeacherService) ListTeachers(ctx context.Context, status string) ([]models.Teacher, error) {
	query := s.db.WithContext(ctx).Preload("User")
	if status != "" {
		query = query.Where("verification_status = ?", strings.ToUpper(status))
	}
	var teachers []models.Teacher
	if err := query.Order("created_at DESC").Find(&teachers).Error; err != nil {
		return nil, internal(err)
	}
	return teachers, nil
}

// SetVerification records the admin decision on a teacher's documents.
func (s *TeacherService) SetVerification(ctx context.Context, teacherID uuid.UUID, status string) (*models.Teacher, error) {
	db := s.db.WithContext(ctx)

	status = strings.ToUpper(status)
	if status != models.VerificationApproved && status != models.VerificationRejected {
		return nil, validation("Status must be APPROVED or REJECTED")
	}

	var teacher models.Teacher
	if err := db.Preload("User").First(&teacher, "id = ?", teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Teacher not found")
		}
		return nil, internal(err)
	}
	if teacher.VerificationStatus == models.VerificationNone {
		return nil, invalidState("Teacher has not submitted a verification document")
	}

	err := db.Model(&teacher).Updates(map[string]interface{}{
		"verification_status": status,
		"is_verified":         status == models.VerificationApproved,
	}).Error
	if err != nil {
		return nil, internal(err)
	}
	teacher.VerificationStatus = status
	teacher.IsVerified = status == models.VerificationApproved

	log.Printf("✅ Teacher %s verification set to %s", teacher.ID, status)
	s.notifier.Notify(teacher.UserID, EventVerificationUpdated, verificationEvent(teacher))
	go s.mailer.SendEmail(teacher.User.FullName(), teacher.User.Email,
		"Your verification status changed",
		fmt.Sprintf("<p>Hi %s,</p><p>Your teacher verification is now <strong>%s</strong>.</p>",
			teacher.User.FirstName, strings.ToLower(status)))
	return &teacher, nil
}

func verificationEvent(t models.Teacher) map[string]interface{} {
	return map[string]interface{}{
		"teacherId":          t.ID,
		"verificationStatus": t.VerificationStatus,
		"isVerified":         t.IsVerified,
	}
}
