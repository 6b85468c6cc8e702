package progress

import (
	"sort"

	"github.com/aiqda/aiqda-backend/models"
)

const (
	RecentStudentLessons = 10
	RecentPlatformRows   = 20
	HistogramMonths      = 12
)

type StudentStats struct {
	TotalCourses          int     `json:"total_courses"`
	CompletedCourses      int     `json:"completed_courses"`
	TotalLessonsCompleted int     `json:"total_lessons_completed"`
	AverageProgress       float64 `json:"average_progress"`
}

func SummarizeCourses(courses []models.CourseProgress) StudentStats {
	stats := StudentStats{TotalCourses: len(courses)}
	if len(courses) == 0 {
		return stats
	}
	var sum float64
	for _, cp := range courses {
		if cp.IsCompleted {
			stats.CompletedCourses++
		}
		stats.TotalLessonsCompleted += cp.CompletedLessons
		sum += cp.ProgressPercentage
	}
	stats.AverageProgress = sum / float64(len(courses))
	return stats
}

type LessonStats struct {
	TotalViews             int     `json:"total_views"`
	AverageWatchPercentage float64 `json:"average_watch_percentage"`
	QuizPassRate           float64 `json:"quiz_pass_rate"`
	QualificationRate      float64 `json:"qualification_rate"`
}

// SummarizeLesson computes per-lesson rates. With no rows the denominator is treated as
// 1, so every figure is 0.
func SummarizeLesson(rows []models.LessonProgress) LessonStats {
	var watchSum float64
	var passed, qualified int
	for _, p := range rows {
		watchSum += p.WatchPercentage
		if p.QuizPassed {
			passed++
		}
		if p.IsQualified {
			qualified++
		}
	}
	denominator := float64(len(rows))
	if denominator == 0 {
		denominator = 1
	}
	return LessonStats{
		TotalViews:             len(rows),
		AverageWatchPercentage: watchSum / denominator,
		QuizPassRate:           float64(passed) / denominator * 100,
		QualificationRate:      float64(qualified) / denominator * 100,
	}
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyCompletions buckets completion stamps by calendar month (UTC), newest first,
// keeping at most limit buckets.
func MonthlyCompletions(rows []models.LessonProgress, limit int) []MonthlyCount {
	counts := map[string]int{}
	for _, p := range rows {
		if p.CompletedAt == nil {
			continue
		}
		counts[p.CompletedAt.UTC().Format("2006-01")]++
	}
	out := make([]MonthlyCount, 0, len(counts))
	for month, n := range counts {
		out = append(out, MonthlyCount{Month: month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type CourseStats struct {
	CourseID       string `json:"course_id"`
	Title          string `json:"title"`
	IsPublished    bool   `json:"is_published"`
	LessonsCount   int    `json:"lessons_count"`
	QualifiedViews int    `json:"qualified_views"`
	EnrolledCount  int    `json:"enrolled_count"`
}

type InstructorStats struct {
	TotalCourses       int            `json:"total_courses"`
	TotalStudents      int            `json:"total_students"`
	QualifiedLessons   int            `json:"qualified_lessons"`
	MonthlyCompletions []MonthlyCount `json:"monthly_completions"`
	Courses            []CourseStats  `json:"courses"`
}

// SummarizeInstructor rolls up an instructor's courses. qualified must contain only
// qualified rows belonging to those courses.
func SummarizeInstructor(courses []models.Course, qualified []models.LessonProgress) InstructorStats {
	students := map[string]struct{}{}
	perCourse := map[string]int{}
	for _, p := range qualified {
		perCourse[p.CourseID.String()]++
	}

	stats := InstructorStats{
		TotalCourses:       len(courses),
		QualifiedLessons:   len(qualified),
		MonthlyCompletions: MonthlyCompletions(qualified, HistogramMonths),
		Courses:            make([]CourseStats, 0, len(courses)),
	}
	for _, c := range courses {
		for _, s := range c.EnrolledStudents {
			students[s] = struct{}{}
		}
		stats.Courses = append(stats.Courses, CourseStats{
			CourseID:       c.ID.String(),
			Title:          c.Title,
			IsPublished:    c.IsPublished,
			LessonsCount:   c.LessonsCount,
			QualifiedViews: perCourse[c.ID.String()],
			EnrolledCount:  len(c.EnrolledStudents),
		})
	}
	stats.TotalStudents = len(students)
	return stats
}
