package progress

import (
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestSummarizeCourses(t *testing.T) {
	stats := SummarizeCourses([]models.CourseProgress{
		{CompletedLessons: 2, ProgressPercentage: 50},
		{CompletedLessons: 4, ProgressPercentage: 100, IsCompleted: true},
	})
	want := StudentStats{TotalCourses: 2, CompletedCourses: 1, TotalLessonsCompleted: 6, AverageProgress: 75}
	if stats != want {
		t.Fatalf("SummarizeCourses = %+v, want %+v", stats, want)
	}
	if empty := SummarizeCourses(nil); empty != (StudentStats{}) {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func TestSummarizeLesson(t *testing.T) {
	stats := SummarizeLesson([]models.LessonProgress{
		{WatchPercentage: 100, QuizPassed: true, IsQualified: true},
		{WatchPercentage: 50, QuizPassed: true},
		{WatchPercentage: 30},
		{WatchPercentage: 20},
	})
	if stats.TotalViews != 4 || stats.AverageWatchPercentage != 50 || stats.QuizPassRate != 50 || stats.QualificationRate != 25 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if empty := SummarizeLesson(nil); empty != (LessonStats{}) {
		t.Fatalf("empty lesson stats = %+v", empty)
	}
}

func at(year int, month time.Month) *time.Time {
	ts := time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
	return &ts
}

func TestMonthlyCompletions(t *testing.T) {
	var rows []models.LessonProgress
	for m := time.January; m <= time.December; m++ {
		rows = append(rows, models.LessonProgress{CompletedAt: at(2024, m)})
	}
	rows = append(rows,
		models.LessonProgress{CompletedAt: at(2025, time.February)},
		models.LessonProgress{CompletedAt: at(2025, time.February)},
		models.LessonProgress{},
	)

	got := MonthlyCompletions(rows, HistogramMonths)
	if len(got) != HistogramMonths {
		t.Fatalf("got %d months, want %d", len(got), HistogramMonths)
	}
	if got[0] != (MonthlyCount{Month: "2025-02", Count: 2}) {
		t.Errorf("newest bucket = %+v", got[0])
	}
	if got[len(got)-1].Month != "2024-02" {
		t.Errorf("oldest kept bucket = %s, want 2024-02", got[len(got)-1].Month)
	}
}

func TestSummarizeInstructor(t *testing.T) {
	s1, s2, s3 := uuid.NewString(), uuid.NewString(), uuid.NewString()
	c1 := models.Course{ID: uuid.New(), Title: "Arabic I", EnrolledStudents: pq.StringArray{s1, s2}, LessonsCount: 3}
	c2 := models.Course{ID: uuid.New(), Title: "Arabic II", EnrolledStudents: pq.StringArray{s2, s3}}

	stats := SummarizeInstructor([]models.Course{c1, c2}, []models.LessonProgress{
		{CourseID: c1.ID, IsQualified: true, CompletedAt: at(2025, time.May)},
		{CourseID: c1.ID, IsQualified: true, CompletedAt: at(2025, time.May)},
		{CourseID: c2.ID, IsQualified: true, CompletedAt: at(2025, time.April)},
	})

	if stats.TotalCourses != 2 || stats.TotalStudents != 3 || stats.QualifiedLessons != 3 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.Courses[0].QualifiedViews != 2 || stats.Courses[1].QualifiedViews != 1 {
		t.Errorf("unexpected per-course views %+v", stats.Courses)
	}
	if len(stats.MonthlyCompletions) != 2 || stats.MonthlyCompletions[0].Month != "2025-05" {
		t.Errorf("unexpected histogram %+v", stats.MonthlyCompletions)
	}
}
