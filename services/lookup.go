package services

import (
	"errors"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func findStudent(db *gorm.DB, userID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := db.Where("user_id = ?", userID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Student profile not found")
		}
		return nil, internal(err)
	}
	return &student, nil
}

func findTeacher(db *gorm.DB, userID uuid.UUID) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := db.Preload("User").Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Teacher profile not found")
		}
		return nil, internal(err)
	}
	return &teacher, nil
}

func findCourse(db *gorm.DB, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := db.First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Course not found")
		}
		return nil, internal(err)
	}
	return &course, nil
}

// incrementEnrollments bumps the counter in SQL so concurrent enrollments
// never lose an update.
func incrementEnrollments(tx *gorm.DB, courseID uuid.UUID) error {
	return tx.Model(&models.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("total_enrollments", gorm.Expr("total_enrollments + ?", 1)).Error
}

// publicUser limits a preloaded user to what other users may see.
func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "profile_image")
}
