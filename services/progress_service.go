package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/google/uuid"
)

// ProgressListener receives committed progress events. Implementations must not block.
type ProgressListener interface {
	HandleProgressEvent(ctx context.Context, event progress.Event)
}

type ProgressListenerFunc func(ctx context.Context, event progress.Event)

func (f ProgressListenerFunc) HandleProgressEvent(ctx context.Context, event progress.Event) {
	f(ctx, event)
}

type ProgressService struct {
	store     ProgressStore
	listeners []ProgressListener
	now       func() time.Time
}

func NewProgressService(store ProgressStore, listeners ...ProgressListener) *ProgressService {
	return &ProgressService{store: store, listeners: listeners, now: time.Now}
}

// SetClock replaces the time source. Used by tests.
func (s *ProgressService) SetClock(now func() time.Time) {
	s.now = now
}

// Subscribe adds a listener after construction.
func (s *ProgressService) Subscribe(l ProgressListener) {
	s.listeners = append(s.listeners, l)
}

type WatchResult struct {
	Progress       *models.LessonProgress `json:"progress"`
	Touch          Touch                  `json:"-"`
	NewlyQualified bool                   `json:"newly_qualified"`
	CourseProgress *models.CourseProgress `json:"course_progress,omitempty"`
}

type QuizResult struct {
	Score          int                     `json:"score"`
	TotalQuestions int                     `json:"total_questions"`
	Passed         bool                    `json:"passed"`
	PassingScore   int                     `json:"passing_score"`
	Results        []progress.AnswerResult `json:"results"`
	Progress       *models.LessonProgress  `json:"progress"`
	Touch          Touch                   `json:"-"`
	CourseProgress *models.CourseProgress  `json:"course_progress,omitempty"`
}

// RecordWatch stores a watch-percentage report for the user's lesson. A lesson that
// becomes qualified here also rolls up the course.
func (s *ProgressService) RecordWatch(ctx context.Context, userID, lessonID uuid.UUID, percentage float64) (*WatchResult, error) {
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: watch percentage must be between 0 and 100", ErrValidation)
	}

	now := s.now()
	result := &WatchResult{}
	var events []progress.Event

	err := s.store.Transaction(ctx, func(tx ProgressStore) error {
		lesson, err := tx.FindLesson(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("lesson: %w", err)
		}

		p, touch, err := tx.GetOrInitLessonProgress(ctx, userID, lesson)
		if err != nil {
			return err
		}
		result.Touch = touch
		result.NewlyQualified = progress.ApplyWatch(p, lesson, percentage, now)
		if err := tx.SaveLessonProgress(ctx, p); err != nil {
			return err
		}
		result.Progress = p

		event := progressEvent(progress.EventWatchRecorded, p, now)
		events = append(events, event)
		if !result.NewlyQualified {
			return nil
		}

		event.Kind = progress.EventLessonQualified
		events = append(events, event)

		cp, completed, err := s.rollup(ctx, tx, userID, lesson.CourseID, now)
		if err != nil {
			return err
		}
		result.CourseProgress = cp
		if completed {
			events = append(events, courseEvent(cp, lesson.ID, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events)
	return result, nil
}

// SubmitQuiz grades a quiz attempt by position and records it. A passing attempt with the
// watch threshold met rolls up the course.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, lessonID uuid.UUID, answers []int) (*QuizResult, error) {
	now := s.now()
	result := &QuizResult{}
	var events []progress.Event

	err := s.store.Transaction(ctx, func(tx ProgressStore) error {
		quiz, err := tx.FindQuizByLesson(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("quiz: %w", err)
		}
		lesson, err := tx.FindLesson(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("lesson: %w", err)
		}

		score, breakdown := progress.ScoreAnswers(quiz.Questions, answers)
		passed := score >= quiz.PassingScore
		result.Score = score
		result.TotalQuestions = len(quiz.Questions)
		result.Passed = passed
		result.PassingScore = quiz.PassingScore
		result.Results = breakdown

		p, touch, err := tx.GetOrInitLessonProgress(ctx, userID, lesson)
		if err != nil {
			return err
		}
		result.Touch = touch
		newly := progress.ApplyQuizAttempt(p, lesson, score, passed, now)
		if err := tx.SaveLessonProgress(ctx, p); err != nil {
			return err
		}
		result.Progress = p

		event := progressEvent(progress.EventQuizSubmitted, p, now)
		event.Score = score
		event.Passed = passed
		events = append(events, event)
		if newly {
			event.Kind = progress.EventLessonQualified
			events = append(events, event)
		}

		if !passed || !progress.MeetsWatchThreshold(p, lesson) {
			return nil
		}
		cp, completed, err := s.rollup(ctx, tx, userID, lesson.CourseID, now)
		if err != nil {
			return err
		}
		result.CourseProgress = cp
		if completed {
			events = append(events, courseEvent(cp, lesson.ID, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events)
	return result, nil
}

// GetLessonProgress returns the stored progress, or an unsaved zero record when the user
// has not touched the lesson yet.
func (s *ProgressService) GetLessonProgress(ctx context.Context, userID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	lesson, err := s.store.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("lesson: %w", err)
	}
	p, err := s.store.FindLessonProgress(ctx, userID, lessonID)
	if errors.Is(err, ErrNotFound) {
		return &models.LessonProgress{UserID: userID, LessonID: lesson.ID, CourseID: lesson.CourseID}, nil
	}
	return p, err
}

// AuthorizeLessonAccess returns the lesson when the actor is enrolled in its course, owns
// the course or is an admin. Unpublished lessons are hidden from students.
func (s *ProgressService) AuthorizeLessonAccess(ctx context.Context, actor Actor, lessonID uuid.UUID) (*models.Lesson, error) {
	lesson, err := s.store.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("lesson: %w", err)
	}
	course, err := s.store.FindCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if actor.CanManageCourse(course) {
		return lesson, nil
	}
	if !course.IsEnrolled(actor.ID) {
		return nil, fmt.Errorf("%w: you are not enrolled in this course", ErrForbidden)
	}
	if !lesson.IsPublished {
		return nil, fmt.Errorf("lesson: %w", ErrNotFound)
	}
	return lesson, nil
}

// rollup recomputes the course row. Users without a course row are skipped.
func (s *ProgressService) rollup(ctx context.Context, tx ProgressStore, userID, courseID uuid.UUID, now time.Time) (*models.CourseProgress, bool, error) {
	cp, err := tx.FindCourseProgress(ctx, userID, courseID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	qualified, err := tx.CountQualifiedLessons(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	completed := progress.Rollup(cp, qualified, now)
	if err := tx.SaveCourseProgress(ctx, cp); err != nil {
		return nil, false, err
	}
	return cp, completed, nil
}

func (s *ProgressService) emit(ctx context.Context, events []progress.Event) {
	for _, e := range events {
		for _, l := range s.listeners {
			l.HandleProgressEvent(ctx, e)
		}
	}
	if len(events) > 1 {
		log.Printf("✅ Progress updated for user %s on lesson %s (%d events)", events[0].UserID, events[0].LessonID, len(events))
	}
}

func progressEvent(kind progress.EventKind, p *models.LessonProgress, now time.Time) progress.Event {
	return progress.Event{
		Kind:            kind,
		UserID:          p.UserID,
		LessonID:        p.LessonID,
		CourseID:        p.CourseID,
		WatchPercentage: p.WatchPercentage,
		Qualified:       p.IsQualified,
		At:              now,
	}
}

func courseEvent(cp *models.CourseProgress, lessonID uuid.UUID, now time.Time) progress.Event {
	return progress.Event{
		Kind:                     progress.EventCourseCompleted,
		UserID:                   cp.UserID,
		LessonID:                 lessonID,
		CourseID:                 cp.CourseID,
		Qualified:                true,
		CourseProgressPercentage: cp.ProgressPercentage,
		At:                       now,
	}
}
