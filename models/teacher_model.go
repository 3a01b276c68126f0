package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VerificationNone     = "NONE"
	VerificationPending  = "PENDING"
	VerificationApproved = "APPROVED"
	VerificationRejected = "REJECTED"
)

type Teacher struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Bio                  *string   `gorm:"type:text" json:"bio,omitempty"`
	Qualifications       *string   `gorm:"type:text" json:"qualifications,omitempty"`
	Specialization       *string   `gorm:"size:255" json:"specialization,omitempty"`
	Experience           *int      `json:"experience,omitempty"`
	Education            *string   `gorm:"type:text" json:"education,omitempty"`
	IsVerified           bool      `gorm:"not null;default:false" json:"isVerified"`
	VerificationStatus   string    `gorm:"size:20;not null;default:'NONE'" json:"verificationStatus"`
	VerificationDocument *string   `gorm:"size:255" json:"verificationDocument,omitempty"`
	VerificationFeePaid  bool      `gorm:"not null;default:false" json:"verificationFeePaid"`
	TutorStandActive     bool      `gorm:"not null;default:false" json:"tutorStandActive"`

	User                   User                    `gorm:"foreignKey:UserID" json:"user"`
	Courses                []Course                `gorm:"foreignKey:TeacherID" json:"courses,omitempty"`
	TutorStandSubscription *TutorStandSubscription `gorm:"foreignKey:TeacherID" json:"tutorStandSubscription,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Teacher) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
