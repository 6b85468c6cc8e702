package services

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/notifications"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed templates/certificate.html
var certificateTemplateSource string

var certificateTemplate = template.Must(template.New("certificate").Parse(certificateTemplateSource))

const certificateTimeout = 60 * time.Second

type CertificateUploader interface {
	Enabled() bool
	UploadCertificate(ctx context.Context, pdf []byte, userID, courseID uuid.UUID) (string, error)
}

type Notifier interface {
	Notify(userID uuid.UUID, kind string, data interface{})
}

// PDFRenderer turns a complete HTML document into PDF bytes.
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

type CertificateData struct {
	StudentName    string
	CourseTitle    string
	InstructorName string
	IssuedOn       string
	CertificateID  string
}

type CertificateService struct {
	db       *gorm.DB
	uploader CertificateUploader
	mailer   *notifications.Mailer
	notifier Notifier
	render   PDFRenderer
	now      func() time.Time
}

func NewCertificateService(db *gorm.DB, uploader CertificateUploader, mailer *notifications.Mailer, notifier Notifier) *CertificateService {
	return &CertificateService{
		db:       db,
		uploader: uploader,
		mailer:   mailer,
		notifier: notifier,
		render:   ChromePDF,
		now:      time.Now,
	}
}

// HandleProgressEvent issues the certificate in the background once a course completes.
func (s *CertificateService) HandleProgressEvent(_ context.Context, e progress.Event) {
	if e.Kind != progress.EventCourseCompleted {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), certificateTimeout)
		defer cancel()
		if _, err := s.Issue(ctx, e.UserID, e.CourseID); err != nil {
			log.Printf("🔥 Failed to issue certificate for user %s course %s: %v", e.UserID, e.CourseID, err)
		}
	}()
}

// publish renders the certificate PDF and uploads it. Rendering starts a browser, so it is
// skipped when there is nowhere to store the result.
func (s *CertificateService) publish(ctx context.Context, data CertificateData, userID, courseID uuid.UUID) (string, error) {
	if s.uploader == nil || !s.uploader.Enabled() {
		return "", fmt.Errorf("certificate upload: %w", media.ErrNotConfigured)
	}
	html, err := RenderCertificateHTML(data)
	if err != nil {
		return "", err
	}
	pdf, err := s.render(ctx, html)
	if err != nil {
		return "", fmt.Errorf("failed to render certificate pdf: %w", err)
	}
	url, err := s.uploader.UploadCertificate(ctx, pdf, userID, courseID)
	if err != nil {
		return "", fmt.Errorf("failed to upload certificate: %w", err)
	}
	return url, nil
}

// Issue creates the user's certificate for a completed course. An existing certificate is
// returned as is.
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error) {
	db := s.db.WithContext(ctx)

	var existing models.Certificate
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var cp models.CourseProgress
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cp).Error; err != nil {
		return nil, fmt.Errorf("course progress: %w", notFound(err))
	}
	if !cp.IsCompleted {
		return nil, fmt.Errorf("%w: course is not completed", ErrValidation)
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user: %w", notFound(err))
	}
	var course models.Course
	if err := db.Preload("Instructor").First(&course, "id = ?", courseID).Error; err != nil {
		return nil, fmt.Errorf("course: %w", notFound(err))
	}

	issuedAt := s.now()
	if cp.CompletedAt != nil {
		issuedAt = *cp.CompletedAt
	}
	data := CertificateData{
		StudentName:   user.FullName,
		CourseTitle:   course.Title,
		IssuedOn:      issuedAt.Format("January 2, 2006"),
		CertificateID: uuid.NewString(),
	}
	if course.Instructor != nil {
		data.InstructorName = course.Instructor.FullName
	}

	url, err := s.publish(ctx, data, userID, courseID)
	if err != nil {
		return nil, err
	}

	cert := models.Certificate{
		UserID:         userID,
		CourseID:       courseID,
		CourseTitle:    course.Title,
		CertificateURL: url,
		IssuedAt:       issuedAt,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&cert)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// another worker won the race; keep its row
		if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error; err != nil {
			return nil, err
		}
		return &cert, nil
	}

	log.Printf("✅ Generated and uploaded certificate '%s' for user %s.", course.Title, userID)

	email := notifications.CertificateEmail(course.Title, url)
	go s.mailer.SendEmail(user.FullName, user.Email, email.Subject, email.Body)
	if s.notifier != nil {
		s.notifier.Notify(userID, websocket.TypeCertificateIssued, cert)
	}
	return &cert, nil
}

func (s *CertificateService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}

func RenderCertificateHTML(data CertificateData) (string, error) {
	var rendered bytes.Buffer
	if err := certificateTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

// ChromePDF prints the document with a headless Chrome instance.
func ChromePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
