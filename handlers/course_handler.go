package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

type CourseRequest struct {
	Title            string  `json:"title" validate:"required"`
	Description      string  `json:"description" validate:"required"`
	ShortDescription *string `json:"shortDescription"`
	Category         string  `json:"category" validate:"required"`
	Level            *string `json:"level"`
	Price            float64 `json:"price" validate:"gte=0"`
	Duration         int     `json:"duration" validate:"gte=0"`
	ThumbnailImage   *string `json:"thumbnailImage"`
}

type ModuleRequest struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

type LessonRequest struct {
	Title    string  `json:"title" validate:"required"`
	Content  *string `json:"content"`
	VideoURL *string `json:"videoUrl"`
	Duration int     `json:"duration" validate:"gte=0"`
	Position int     `json:"position" validate:"gte=0"`
}

type PublishRequest struct {
	IsPublished *bool `json:"isPublished"`
}

type CourseHandler struct {
	courses *services.CourseService
}

func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) List(c *fiber.Ctx) error {
	courses, err := h.courses.ListPublished(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Courses retrieved successfully", courses)
}

func (h *CourseHandler) Get(c *fiber.Ctx) error {
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	course, err := h.courses.Get(c.UserContext(), courseID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Course retrieved successfully", course)
}

func (h *CourseHandler) Create(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req CourseRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	course, err := h.courses.Create(c.UserContext(), id.UserID, services.CourseInput{
		Title:            req.Title,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Category:         req.Category,
		Level:            req.Level,
		Price:            req.Price,
		Duration:         req.Duration,
		ThumbnailImage:   req.ThumbnailImage,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "Course created successfully", course)
}

func (h *CourseHandler) AddModule(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ModuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	module, err := h.courses.AddModule(c.UserContext(), id.UserID, courseID, services.ModuleInput{
		Title:    req.Title,
		Position: req.Position,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "Module added successfully", module)
}

func (h *CourseHandler) AddLesson(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	moduleID, err := paramUUID(c, "moduleId")
	if err != nil {
		return err
	}
	var req LessonRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lesson, err := h.courses.AddLesson(c.UserContext(), id.UserID, courseID, moduleID, services.LessonInput{
		Title:    req.Title,
		Content:  req.Content,
		VideoURL: req.VideoURL,
		Duration: req.Duration,
		Position: req.Position,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "Lesson added successfully", lesson)
}

// Publish sets catalogue visibility. An empty body publishes.
func (h *CourseHandler) Publish(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	publish := true
	if len(c.Body()) > 0 {
		var req PublishRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.IsPublished != nil {
			publish = *req.IsPublished
		}
	}

	course, err := h.courses.SetPublished(c.UserContext(), id.UserID, courseID, publish)
	if err != nil {
		return err
	}
	msg := "Course published successfully"
	if !publish {
		msg = "Course unpublished successfully"
	}
	return success(c, fiber.StatusOK, msg, course)
}
