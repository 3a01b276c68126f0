package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionInactive  = "INACTIVE"
	SubscriptionActive    = "ACTIVE"
	SubscriptionCancelled = "CANCELLED"
)

// TutorStandSubscription is the teacher's recurring listing plan, billed by
// the payment provider.
type TutorStandSubscription struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"teacherId"`
	Status               string     `gorm:"size:20;not null;default:'INACTIVE'" json:"status"`
	Amount               float64    `gorm:"type:numeric(10,2);not null;default:0" json:"amount"`
	StripeSubscriptionID *string    `gorm:"size:255;uniqueIndex" json:"stripeSubscriptionId,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *TutorStandSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
