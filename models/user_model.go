package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email,omitempty"`
	Password     string    `gorm:"not null" json:"-"`
	FirstName    string    `gorm:"size:100;not null" json:"firstName"`
	LastName     string    `gorm:"size:100;not null" json:"lastName"`
	Role         Role      `gorm:"size:20;not null;default:'STUDENT'" json:"role"`
	PhoneNumber  *string   `gorm:"size:30" json:"phoneNumber,omitempty"`
	ProfileImage *string   `gorm:"size:255" json:"profileImage,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`

	Student *Student `gorm:"foreignKey:UserID" json:"student,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:UserID" json:"teacher,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
