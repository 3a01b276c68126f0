package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentPurpose string

const (
	PurposeCourseEnrollment    PaymentPurpose = "course_enrollment"
	PurposeTeacherVerification PaymentPurpose = "teacher_verification"
)

type Payment struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID         *uuid.UUID     `gorm:"type:uuid;index" json:"studentId,omitempty"`
	TeacherID         *uuid.UUID     `gorm:"type:uuid;index" json:"teacherId,omitempty"`
	Amount            float64        `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency          string         `gorm:"size:8;not null" json:"currency"`
	Provider          string         `gorm:"size:20;not null" json:"provider"`
	ProviderPaymentID string         `gorm:"size:255;not null;uniqueIndex" json:"providerPaymentId"`
	Status            PaymentStatus  `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Purpose           PaymentPurpose `gorm:"size:40;not null" json:"purpose"`
	Metadata          datatypes.JSON `json:"metadata"`
	ConfirmedAt       *time.Time     `json:"confirmedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaymentMetadata is the purpose-specific payload stored with a payment.
// Each purpose has exactly one metadata type.
type PaymentMetadata interface {
	Purpose() PaymentPurpose
}

type CourseEnrollmentMetadata struct {
	CourseID uuid.UUID `json:"courseId"`
}

func (CourseEnrollmentMetadata) Purpose() PaymentPurpose { return PurposeCourseEnrollment }

type TeacherVerificationMetadata struct {
	TeacherID uuid.UUID `json:"teacherId"`
}

func (TeacherVerificationMetadata) Purpose() PaymentPurpose { return PurposeTeacherVerification }

// SetMetadata stores m and sets Purpose from it so the two cannot disagree.
func (p *Payment) SetMetadata(m PaymentMetadata) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	p.Purpose = m.Purpose()
	p.Metadata = datatypes.JSON(raw)
	return nil
}

func (p *Payment) DecodeMetadata() (PaymentMetadata, error) {
	switch p.Purpose {
	case PurposeCourseEnrollment:
		var m CourseEnrollmentMetadata
		if err := json.Unmarshal(p.Metadata, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", p.Purpose, err)
		}
		return m, nil
	case PurposeTeacherVerification:
		var m TeacherVerificationMetadata
		if err := json.Unmarshal(p.Metadata, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", p.Purpose, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown payment purpose %q", p.Purpose)
	}
}
