package progress

import (
	"time"

	"github.com/aiqda/aiqda-backend/models"
)

// MeetsWatchThreshold reports whether the watched share reaches the lesson minimum.
func MeetsWatchThreshold(p *models.LessonProgress, lesson *models.Lesson) bool {
	return p.WatchPercentage >= float64(lesson.MinimumWatchPercentage)
}

// ApplyWatch records a watch-percentage report. Lower reports than the stored value are
// ignored. It returns true when this call qualified the lesson.
func ApplyWatch(p *models.LessonProgress, lesson *models.Lesson, percentage float64, now time.Time) bool {
	if percentage > p.WatchPercentage {
		p.WatchPercentage = percentage
	}
	watchedAt := now
	p.LastWatchedAt = &watchedAt
	return qualify(p, lesson, now)
}

// ApplyQuizAttempt records one quiz submission. Every call counts as an attempt. It
// returns true when this call qualified the lesson.
func ApplyQuizAttempt(p *models.LessonProgress, lesson *models.Lesson, score int, passed bool, now time.Time) bool {
	p.QuizAttempts++
	if score > p.QuizScore {
		p.QuizScore = score
	}
	if passed {
		p.QuizPassed = true
	}
	return qualify(p, lesson, now)
}

func qualify(p *models.LessonProgress, lesson *models.Lesson, now time.Time) bool {
	if !p.QuizPassed || !MeetsWatchThreshold(p, lesson) {
		return false
	}
	newly := !p.IsQualified
	p.IsQualified = true
	if p.CompletedAt == nil {
		completedAt := now
		p.CompletedAt = &completedAt
	}
	return newly
}

// Rollup recomputes a course progress row from the number of qualified lessons. It
// returns true when this call moved the course to completed for the first time.
func Rollup(cp *models.CourseProgress, qualifiedLessons int, now time.Time) bool {
	cp.CompletedLessons = qualifiedLessons
	cp.ProgressPercentage = Percentage(qualifiedLessons, cp.TotalLessons)

	wasCompleted := cp.IsCompleted
	cp.IsCompleted = qualifiedLessons >= cp.TotalLessons
	if cp.IsCompleted && cp.CompletedAt == nil {
		completedAt := now
		cp.CompletedAt = &completedAt
	}
	return cp.IsCompleted && !wasCompleted
}

// Percentage returns part/total*100 capped at 100, or 0 when total is not positive.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(part) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
