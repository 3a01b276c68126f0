package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/anjiri1684/edutech_marketplace/cache"
	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseInput struct {
	Title            string
	Description      string
	ShortDescription *string
	Category         string
	Level            *string
	Price            float64
	Duration         int
	ThumbnailImage   *string
}

type ModuleInput struct {
	Title    string
	Position int
}

type LessonInput struct {
	Title    string
	Content  *string
	VideoURL *string
	Duration int
	Position int
}

const catalogTTL = 5 * time.Minute

type CourseService struct {
	db    *gorm.DB
	cache cache.Store
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

// WithCache keeps catalogue listings in store for a few minutes. Publishing
// or unpublishing a course evicts them.
func (s *CourseService) WithCache(store cache.Store) *CourseService {
	s.cache = store
	return s
}

func catalogKey(category string) string {
	if category == "" {
		return "courses:published:all"
	}
	return "courses:published:" + category
}

func orderedCurriculum(db *gorm.DB) *gorm.DB {
	return db.Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

// ListPublished returns the catalogue, optionally narrowed to one category.
func (s *CourseService) ListPublished(ctx context.Context, category string) ([]models.Course, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, catalogKey(category)); err == nil {
			var courses []models.Course
			if err := json.Unmarshal(raw, &courses); err == nil {
				return courses, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Printf("⚠️ Catalogue cache read failed: %v", err)
		}
	}

	query := s.db.WithContext(ctx).Preload("Teacher.User", publicUser).Where("is_published = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, internal(err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(courses); err == nil {
			if err := s.cache.Set(ctx, catalogKey(category), raw, catalogTTL); err != nil {
				log.Printf("⚠️ Catalogue cache write failed: %v", err)
			}
		}
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := orderedCurriculum(s.db.WithContext(ctx)).
		Preload("Teacher.User", publicUser).
		First(&course, "id = ?", courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Course not found")
		}
		return nil, internal(err)
	}
	return &course, nil
}

func (s *CourseService) Create(ctx context.Context, teacherUserID uuid.UUID, in CourseInput) (*models.Course, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, teacherUserID)
	if err != nil {
		return nil, err
	}
	if in.Price < 0 {
		return nil, validation("Price cannot be negative")
	}

	course := models.Course{
		TeacherID:        teacher.ID,
		Title:            in.Title,
		Description:      in.Description,
		ShortDescription: in.ShortDescription,
		Category:         in.Category,
		Level:            in.Level,
		Price:            in.Price,
		Duration:         in.Duration,
		ThumbnailImage:   in.ThumbnailImage,
	}
	if err := db.Create(&course).Error; err != nil {
		return nil, internal(err)
	}
	return &course, nil
}

func (s *CourseService) AddModule(ctx context.Context, teacherUserID, courseID uuid.UUID, in ModuleInput) (*models.Module, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.ownedCourse(db, teacherUserID, courseID); err != nil {
		return nil, err
	}
	module := models.Module{CourseID: courseID, Title: in.Title, Position: in.Position}
	if err := db.Create(&module).Error; err != nil {
		return nil, internal(err)
	}
	return &module, nil
}

func (s *CourseService) AddLesson(ctx context.Context, teacherUserID, courseID, moduleID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.ownedCourse(db, teacherUserID, courseID); err != nil {
		return nil, err
	}

	var module models.Module
	if err := db.Where("id = ? AND course_id = ?", moduleID, courseID).First(&module).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Module not found")
		}
		return nil, internal(err)
	}

	lesson := models.Lesson{
		ModuleID: module.ID,
		Title:    in.Title,
		Content:  in.Content,
		VideoURL: in.VideoURL,
		Duration: in.Duration,
		Position: in.Position,
	}
	if err := db.Create(&lesson).Error; err != nil {
		return nil, internal(err)
	}
	return &lesson, nil
}

// SetPublished flips catalogue visibility. Publishing an empty course is
// refused; unpublishing never is.
func (s *CourseService) SetPublished(ctx context.Context, teacherUserID, courseID uuid.UUID, published bool) (*models.Course, error) {
	db := s.db.WithContext(ctx)

	course, err := s.ownedCourse(db, teacherUserID, courseID)
	if err != nil {
		return nil, err
	}

	if published {
		var lessons int64
		err := db.Model(&models.Lesson{}).
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("modules.course_id = ?", course.ID).
			Count(&lessons).Error
		if err != nil {
			return nil, internal(err)
		}
		if lessons == 0 {
			return nil, invalidState("Add at least one lesson before publishing")
		}
	}

	if err := db.Model(course).Update("is_published", published).Error; err != nil {
		return nil, internal(err)
	}
	course.IsPublished = published

	if s.cache != nil {
		if err := s.cache.Del(ctx, catalogKey(""), catalogKey(course.Category)); err != nil {
			log.Printf("⚠️ Catalogue cache eviction failed: %v", err)
		}
	}
	return course, nil
}

func (s *CourseService) TeacherCourses(ctx context.Context, teacherUserID uuid.UUID) ([]models.Course, error) {
	db := s.db.WithContext(ctx)

	teacher, err := findTeacher(db, teacherUserID)
	if err != nil {
		return nil, err
	}

	var courses []models.Course
	err = orderedCurriculum(db).
		Where("teacher_id = ?", teacher.ID).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, internal(err)
	}
	return courses, nil
}

func (s *CourseService) ownedCourse(db *gorm.DB, teacherUserID, courseID uuid.UUID) (*models.Course, error) {
	teacher, err := findTeacher(db, teacherUserID)
	if err != nil {
		return nil, err
	}
	course, err := findCourse(db, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != teacher.ID {
		return nil, forbidden("You can only modify your own courses")
	}
	return course, nil
}
