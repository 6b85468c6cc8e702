package progress

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventWatchRecorded   EventKind = "watch_recorded"
	EventQuizSubmitted   EventKind = "quiz_submitted"
	EventLessonQualified EventKind = "lesson_qualified"
	EventCourseCompleted EventKind = "course_completed"
)

// Event describes a committed progress change. Events are emitted after the store
// transaction succeeds.
type Event struct {
	Kind     EventKind `json:"kind"`
	UserID   uuid.UUID `json:"user_id"`
	LessonID uuid.UUID `json:"lesson_id"`
	CourseID uuid.UUID `json:"course_id"`

	WatchPercentage float64 `json:"watch_percentage"`
	Score           int     `json:"score,omitempty"`
	Passed          bool    `json:"passed,omitempty"`
	Qualified       bool    `json:"qualified"`

	CourseProgressPercentage float64 `json:"course_progress_percentage,omitempty"`

	At time.Time `json:"at"`
}
