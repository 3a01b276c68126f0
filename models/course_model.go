package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID        uuid.UUID `gorm:"type:uuid;not null;index" json:"teacherId"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	ShortDescription *string   `gorm:"size:500" json:"shortDescription,omitempty"`
	Category         string    `gorm:"size:100;not null" json:"category"`
	Level            *string   `gorm:"size:50" json:"level,omitempty"`
	Price            float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	Duration         int       `gorm:"not null;default:0" json:"duration"`
	ThumbnailImage   *string   `gorm:"size:255" json:"thumbnailImage,omitempty"`
	IsPublished      bool      `gorm:"not null;default:false" json:"isPublished"`
	TotalEnrollments int       `gorm:"not null;default:0" json:"totalEnrollments"`

	Teacher *Teacher `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Modules []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TotalLessons counts lessons across the preloaded modules.
func (c Course) TotalLessons() int {
	total := 0
	for _, m := range c.Modules {
		total += len(m.Lessons)
	}
	return total
}

type Module struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"courseId"`
	Title    string    `gorm:"size:255;not null" json:"title"`
	Position int       `gorm:"not null;default:0" json:"position"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;index" json:"moduleId"`
	Title    string    `gorm:"size:255;not null" json:"title"`
	Content  *string   `gorm:"type:text" json:"content,omitempty"`
	VideoURL *string   `gorm:"size:255" json:"videoUrl,omitempty"`
	Duration int       `gorm:"not null;default:0" json:"duration"`
	Position int       `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
