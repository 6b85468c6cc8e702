package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aiqda/aiqda-backend/progress"
	"github.com/aiqda/aiqda-backend/services"
)

func TestRenderCertificateHTML(t *testing.T) {
	html, err := services.RenderCertificateHTML(services.CertificateData{
		StudentName:    "Sara <Admin>",
		CourseTitle:    "Intro to Tajweed",
		InstructorName: "Omar",
		IssuedOn:       "March 10, 2025",
		CertificateID:  "abc-123",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"Sara &lt;Admin&gt;", "Intro to Tajweed", "taught by Omar", "March 10, 2025", "abc-123"} {
		if !strings.Contains(html, want) {
			t.Errorf("certificate html missing %q", want)
		}
	}

	html, err = services.RenderCertificateHTML(services.CertificateData{StudentName: "Sara", CourseTitle: "Arabic"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(html, "taught by") {
		t.Error("instructor line should be omitted without an instructor name")
	}
}

func TestCertificateServiceIgnoresOtherEvents(t *testing.T) {
	// a nil database would panic if any of these reached Issue
	svc := services.NewCertificateService(nil, nil, nil, nil)
	for _, kind := range []progress.EventKind{progress.EventWatchRecorded, progress.EventQuizSubmitted, progress.EventLessonQualified} {
		svc.HandleProgressEvent(context.Background(), progress.Event{Kind: kind})
	}
}
