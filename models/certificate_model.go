package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Certificate struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Number         string    `gorm:"size:20;not null;uniqueIndex" json:"number"`
	EnrollmentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"enrollmentId"`
	StudentID      uuid.UUID `gorm:"type:uuid;not null;index" json:"studentId"`
	CourseID       uuid.UUID `gorm:"type:uuid;not null" json:"courseId"`
	CourseTitle    string    `gorm:"size:255;not null" json:"courseTitle"`
	CertificateURL string    `gorm:"size:500;not null" json:"certificateUrl"`
	IssuedAt       time.Time `gorm:"not null" json:"issuedAt"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
