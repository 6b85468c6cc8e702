package progress

import (
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/google/uuid"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func lesson(minWatch int) *models.Lesson {
	return &models.Lesson{ID: uuid.New(), CourseID: uuid.New(), MinimumWatchPercentage: minWatch}
}

func TestApplyWatchIsMonotonic(t *testing.T) {
	l := lesson(80)
	p := &models.LessonProgress{}

	for i, pct := range []float64{40, 75, 30, 60} {
		ApplyWatch(p, l, pct, t0.Add(time.Duration(i)*time.Minute))
	}
	if p.WatchPercentage != 75 {
		t.Fatalf("WatchPercentage = %v, want 75", p.WatchPercentage)
	}
	if p.LastWatchedAt == nil || !p.LastWatchedAt.Equal(t0.Add(3*time.Minute)) {
		t.Fatalf("LastWatchedAt = %v, want the last report time", p.LastWatchedAt)
	}
}

func TestQualificationRequiresBothConditions(t *testing.T) {
	tests := []struct {
		name      string
		watch     float64
		passed    bool
		qualified bool
	}{
		{"watched but quiz not passed", 95, false, false},
		{"passed but not watched enough", 79.9, true, false},
		{"exactly at threshold", 80, true, true},
		{"above threshold", 100, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lesson(80)
			p := &models.LessonProgress{QuizPassed: tt.passed}
			newly := ApplyWatch(p, l, tt.watch, t0)
			if p.IsQualified != tt.qualified || newly != tt.qualified {
				t.Fatalf("IsQualified = %v newly = %v, want %v", p.IsQualified, newly, tt.qualified)
			}
			if tt.qualified && (p.CompletedAt == nil || !p.CompletedAt.Equal(t0)) {
				t.Fatalf("CompletedAt = %v, want %v", p.CompletedAt, t0)
			}
			if !tt.qualified && p.CompletedAt != nil {
				t.Fatalf("CompletedAt should stay nil, got %v", p.CompletedAt)
			}
		})
	}
}

func TestZeroThresholdQualifiesOnQuizAlone(t *testing.T) {
	l := lesson(0)
	p := &models.LessonProgress{}
	if !ApplyQuizAttempt(p, l, 3, true, t0) {
		t.Fatal("a lesson with no watch requirement should qualify on a passed quiz")
	}
}

func TestQualificationIsStickyAndCompletedAtImmutable(t *testing.T) {
	l := lesson(80)
	p := &models.LessonProgress{}
	ApplyWatch(p, l, 90, t0)
	ApplyQuizAttempt(p, l, 3, true, t0.Add(time.Minute))
	first := *p.CompletedAt

	if ApplyQuizAttempt(p, l, 0, false, t0.Add(time.Hour)) {
		t.Fatal("a failed retake must not report a new qualification")
	}
	if ApplyWatch(p, l, 10, t0.Add(2*time.Hour)) {
		t.Fatal("a later low watch report must not report a new qualification")
	}
	if !p.IsQualified || !p.QuizPassed {
		t.Fatal("qualification and quiz pass must be sticky")
	}
	if !p.CompletedAt.Equal(first) {
		t.Fatalf("CompletedAt changed from %v to %v", first, *p.CompletedAt)
	}
}

func TestApplyQuizAttemptKeepsBestScore(t *testing.T) {
	l := lesson(80)
	p := &models.LessonProgress{}
	ApplyQuizAttempt(p, l, 2, false, t0)
	ApplyQuizAttempt(p, l, 4, true, t0)
	ApplyQuizAttempt(p, l, 1, false, t0)

	if p.QuizAttempts != 3 {
		t.Errorf("QuizAttempts = %d, want 3", p.QuizAttempts)
	}
	if p.QuizScore != 4 {
		t.Errorf("QuizScore = %d, want 4", p.QuizScore)
	}
	if !p.QuizPassed {
		t.Error("QuizPassed should stay true after a failed retake")
	}
	if p.IsQualified {
		t.Error("lesson must not qualify without enough watch time")
	}
}

func TestRollup(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		qualified int
		pct       float64
		completed bool
	}{
		{"no lessons", 0, 0, 0, true},
		{"none qualified", 4, 0, 0, false},
		{"half", 4, 2, 50, false},
		{"all", 4, 4, 100, true},
		{"more qualified than total", 2, 3, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := &models.CourseProgress{TotalLessons: tt.total}
			newly := Rollup(cp, tt.qualified, t0)
			if cp.CompletedLessons != tt.qualified {
				t.Errorf("CompletedLessons = %d, want %d", cp.CompletedLessons, tt.qualified)
			}
			if cp.ProgressPercentage != tt.pct {
				t.Errorf("ProgressPercentage = %v, want %v", cp.ProgressPercentage, tt.pct)
			}
			if cp.IsCompleted != tt.completed || newly != tt.completed {
				t.Errorf("IsCompleted = %v newly = %v, want %v", cp.IsCompleted, newly, tt.completed)
			}
		})
	}
}

func TestRollupCompletedAtSetOnce(t *testing.T) {
	cp := &models.CourseProgress{TotalLessons: 1}
	if !Rollup(cp, 1, t0) {
		t.Fatal("first completion should be reported")
	}
	if Rollup(cp, 1, t0.Add(time.Hour)) {
		t.Fatal("second rollup must not report completion again")
	}
	if !cp.CompletedAt.Equal(t0) {
		t.Fatalf("CompletedAt = %v, want %v", cp.CompletedAt, t0)
	}
}

// Two lessons at 80%: watch first then pass, then pass first then watch.
func TestCourseWalkthrough(t *testing.T) {
	first, second := lesson(80), lesson(80)
	cp := &models.CourseProgress{TotalLessons: 2}
	p1, p2 := &models.LessonProgress{}, &models.LessonProgress{}

	ApplyWatch(p1, first, 85, t0)
	if ApplyQuizAttempt(p1, first, 3, true, t0.Add(time.Minute)) {
		Rollup(cp, 1, t0.Add(time.Minute))
	}
	if cp.ProgressPercentage != 50 || cp.IsCompleted {
		t.Fatalf("after first lesson: %+v", cp)
	}

	if ApplyQuizAttempt(p2, second, 3, true, t0.Add(2*time.Minute)) {
		t.Fatal("second lesson should not qualify before it is watched")
	}
	if !ApplyWatch(p2, second, 80, t0.Add(3*time.Minute)) {
		t.Fatal("reaching the threshold after passing should qualify")
	}
	if !Rollup(cp, 2, t0.Add(3*time.Minute)) {
		t.Fatal("course should complete once both lessons qualify")
	}
	if cp.ProgressPercentage != 100 || !cp.CompletedAt.Equal(t0.Add(3*time.Minute)) {
		t.Fatalf("unexpected final course progress %+v", cp)
	}
}
