package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Enrollment struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course" json:"studentId"`
	CourseID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course;index" json:"courseId"`
	CompletedLessons datatypes.JSONSlice[string] `json:"completedLessons"`
	Progress         float64                     `gorm:"not null;default:0" json:"progress"`
	EnrolledAt       time.Time                   `gorm:"autoCreateTime" json:"enrolledAt"`
	CompletedAt      *time.Time                  `json:"completedAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CompletedLessons == nil {
		e.CompletedLessons = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (e *Enrollment) HasCompleted(lessonID string) bool {
	for _, id := range e.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// CompleteLesson records lessonID (once) and recomputes Progress against
// totalLessons. It returns true only on the call that first takes the
// enrollment to 100%, which is also the only call that stamps CompletedAt.
func (e *Enrollment) CompleteLesson(lessonID string, totalLessons int, now time.Time) bool {
	if !e.HasCompleted(lessonID) {
		e.CompletedLessons = append(e.CompletedLessons, lessonID)
	}

	e.Progress = ProgressPercent(len(e.CompletedLessons), totalLessons)

	if e.Progress >= 100 && e.CompletedAt == nil {
		e.CompletedAt = &now
		return true
	}
	return false
}

// ProgressPercent is 100*completed/total rounded to two decimals, capped at
// 100. A course without lessons has no progress.
func ProgressPercent(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := 100 * float64(completed) / float64(total)
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}
