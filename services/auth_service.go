package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anjiri1684/edutech_marketplace/database"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        models.Role
	PhoneNumber *string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	jwtExpiry time.Duration
	mailer    Mailer
}

func NewAuthService(db *gorm.DB, jwtSecret string, jwtExpiry time.Duration, mailer Mailer) *AuthService {
	if mailer == nil {
		mailer = logMailer{}
	}
	return &AuthService{db: db, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry, mailer: mailer}
}

// Register creates the user and its student or teacher profile together.
// Admins are only ever seeded.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if in.Role != models.RoleStudent && in.Role != models.RoleTeacher {
		return nil, validation("Role must be STUDENT or TEACHER")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal(fmt.Errorf("hash password: %w", err))
	}

	user := models.User{
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Password:    string(hashed),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Role:        in.Role,
		PhoneNumber: in.PhoneNumber,
		IsActive:    true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if user.Role == models.RoleTeacher {
			return tx.Create(&models.Teacher{UserID: user.ID, VerificationStatus: models.VerificationNone}).Error
		}
		return tx.Create(&models.Student{UserID: user.ID}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("User already exists with this email")
		}
		return nil, internal(err)
	}

	log.Printf("✅ Registered %s %s", strings.ToLower(string(user.Role)), user.ID)
	go s.mailer.SendEmail(user.FullName(), user.Email, "Welcome to EduTech!",
		fmt.Sprintf("<h1>Welcome, %s!</h1><p>Thank you for registering.</p>", user.FirstName))

	return s.issue(&user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized("Invalid email or password")
		}
		return nil, internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, forbidden("Account is deactivated")
	}
	return s.issue(&user)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Student").Preload("Teacher").First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User not found")
		}
		return nil, internal(err)
	}
	return &user, nil
}

type ProfileInput struct {
	FirstName    *string
	LastName     *string
	PhoneNumber  *string
	ProfileImage *string
}

// UpdateProfile changes only the fields that are set.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, validation("firstName cannot be empty")
		}
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return nil, validation("lastName cannot be empty")
		}
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = in.PhoneNumber
	}
	if in.ProfileImage != nil {
		updates["profile_image"] = in.ProfileImage
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, notFound("User not found")
		}
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, internal(fmt.Errorf("sign token: %w", err))
	}
	return &AuthResult{Token: token, User: user}, nil
}
