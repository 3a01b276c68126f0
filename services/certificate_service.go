package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/anjiri1684/edutech_marketplace/models"
	"github.com/anjiri1684/edutech_marketplace/utils"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed templates/certificate.html
var templateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(templateFS, "templates/certificate.html"))

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

// CertificateService issues a PDF certificate once per completed enrollment.
type CertificateService struct {
	db       *gorm.DB
	storage  FileStorage
	render   PDFRenderer
	notifier Notifier
	now      func() time.Time
}

func NewCertificateService(db *gorm.DB, storage FileStorage, notifier Notifier) *CertificateService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CertificateService{
		db:       db,
		storage:  storage,
		render:   ChromePDF,
		notifier: notifier,
		now:      time.Now,
	}
}

// EnrollmentCompleted issues the certificate in the background; rendering
// a PDF takes seconds and must not hold the progress request.
func (s *CertificateService) EnrollmentCompleted(enrollmentID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.Issue(ctx, enrollmentID); err != nil {
			log.Printf("🔥 Failed to issue certificate for enrollment %s: %v", enrollmentID, err)
		}
	}()
}

func (s *CertificateService) Issue(ctx context.Context, enrollmentID uuid.UUID) (*models.Certificate, error) {
	db := s.db.WithContext(ctx)

	var existing models.Certificate
	err := db.Where("enrollment_id = ?", enrollmentID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal(err)
	}

	var enrollment models.Enrollment
	err = db.Preload("Student.User").Preload("Course.Teacher.User").
		First(&enrollment, "id = ?", enrollmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Enrollment not found")
		}
		return nil, internal(err)
	}
	if enrollment.CompletedAt == nil {
		return nil, invalidState("Course not completed yet")
	}
	if enrollment.Student == nil || enrollment.Course == nil {
		return nil, internal(fmt.Errorf("enrollment %s is missing its student or course", enrollment.ID))
	}

	teacherName := ""
	if enrollment.Course.Teacher != nil {
		teacherName = enrollment.Course.Teacher.User.FullName()
	}
	number, err := utils.GenerateCertificateNumber(db)
	if err != nil {
		return nil, internal(err)
	}
	html, err := renderCertificateHTML(certificateData{
		StudentName:    enrollment.Student.User.FullName(),
		TeacherName:    teacherName,
		CourseTitle:    enrollment.Course.Title,
		CompletionDate: enrollment.CompletedAt.Format("January 2, 2006"),
		CertificateID:  number,
	})
	if err != nil {
		return nil, internal(err)
	}

	pdf, err := s.render(ctx, html)
	if err != nil {
		return nil, internal(fmt.Errorf("render certificate: %w", err))
	}

	publicID := fmt.Sprintf("certificates/%s_%s", enrollment.StudentID, enrollment.ID)
	url, err := s.storage.Upload(ctx, bytes.NewReader(pdf), FolderCertificates, publicID, "raw")
	if err != nil {
		return nil, internal(fmt.Errorf("upload certificate: %w", err))
	}

	cert := models.Certificate{
		Number:         number,
		EnrollmentID:   enrollment.ID,
		StudentID:      enrollment.StudentID,
		CourseID:       enrollment.CourseID,
		CourseTitle:    enrollment.Course.Title,
		CertificateURL: url,
		IssuedAt:       s.now(),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cert).Error; err != nil {
		return nil, internal(err)
	}
	if err := db.Where("enrollment_id = ?", enrollment.ID).First(&cert).Error; err != nil {
		return nil, internal(err)
	}

	log.Printf("✅ Issued certificate for '%s' to student %s", cert.CourseTitle, cert.StudentID)
	s.notifier.Notify(enrollment.Student.UserID, EventCertificateIssued, cert)
	return &cert, nil
}

type certificateData struct {
	StudentName    string
	TeacherName    string
	CourseTitle    string
	CompletionDate string
	CertificateID  string
}

func renderCertificateHTML(data certificateData) (string, error) {
	var out bytes.Buffer
	if err := certificateTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

// ChromePDF prints html with a headless Chrome.
func ChromePDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
