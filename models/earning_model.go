package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const EarningSourceCourseSale = "course_sale"

type Earning struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacherId"`
	PaymentID   *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"paymentId,omitempty"`
	CourseID    *uuid.UUID `gorm:"type:uuid;index" json:"courseId,omitempty"`
	Amount      float64    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Source      string     `gorm:"size:40;not null" json:"source"`
	Description string     `gorm:"size:255" json:"description"`

	CreatedAt time.Time `json:"createdAt"`
}

func (e *Earning) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
