package services

import (
	"context"
	"fmt"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/google/uuid"
)

type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

type StudentSummary struct {
	CourseProgress []models.CourseProgress `json:"course_progress"`
	RecentActivity []models.LessonProgress `json:"recent_activity"`
	Stats          progress.StudentStats   `json:"stats"`
}

type StudentCourseDetail struct {
	CourseProgress *models.CourseProgress  `json:"course_progress"`
	LessonProgress []models.LessonProgress `json:"lesson_progress"`
}

type AdminOverview struct {
	Counts         PlatformCounts          `json:"counts"`
	RecentActivity []models.LessonProgress `json:"recent_activity"`
}

type LessonAnalytics struct {
	LessonID uuid.UUID               `json:"lesson_id"`
	Stats    progress.LessonStats    `json:"stats"`
	Progress []models.LessonProgress `json:"progress"`
}

func (s *AnalyticsService) StudentSummary(ctx context.Context, userID uuid.UUID) (*StudentSummary, error) {
	courses, err := s.store.ListCourseProgressByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListRecentLessonProgressByUser(ctx, userID, progress.RecentStudentLessons)
	if err != nil {
		return nil, err
	}
	return &StudentSummary{
		CourseProgress: nonNil(courses),
		RecentActivity: nonNil(recent),
		Stats:          progress.SummarizeCourses(courses),
	}, nil
}

func (s *AnalyticsService) StudentCourseDetail(ctx context.Context, userID, courseID uuid.UUID) (*StudentCourseDetail, error) {
	cp, err := s.store.FindCourseProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("course progress: %w", err)
	}
	lessons, err := s.store.ListLessonProgressByUserCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return &StudentCourseDetail{CourseProgress: cp, LessonProgress: nonNil(lessons)}, nil
}

// InstructorSummary reports on the instructor's own courses. Revenue is not computed.
func (s *AnalyticsService) InstructorSummary(ctx context.Context, instructorID uuid.UUID) (*progress.InstructorStats, error) {
	courses, err := s.store.ListCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	var qualified []models.LessonProgress
	if len(ids) > 0 {
		if qualified, err = s.store.ListQualifiedProgressByCourses(ctx, ids); err != nil {
			return nil, err
		}
	}
	stats := progress.SummarizeInstructor(courses, qualified)
	return &stats, nil
}

func (s *AnalyticsService) AdminOverview(ctx context.Context) (*AdminOverview, error) {
	counts, err := s.store.PlatformCounts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListRecentLessonProgress(ctx, progress.RecentPlatformRows)
	if err != nil {
		return nil, err
	}
	return &AdminOverview{Counts: counts, RecentActivity: nonNil(recent)}, nil
}

// LessonAnalytics is restricted to the course owner and admins.
func (s *AnalyticsService) LessonAnalytics(ctx context.Context, actor Actor, lessonID uuid.UUID) (*LessonAnalytics, error) {
	lesson, err := s.store.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("lesson: %w", err)
	}
	course, err := s.store.FindCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if !actor.CanManageCourse(course) {
		return nil, fmt.Errorf("%w: only the course owner can view lesson analytics", ErrForbidden)
	}
	rows, err := s.store.ListLessonProgressByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return &LessonAnalytics{
		LessonID: lessonID,
		Stats:    progress.SummarizeLesson(rows),
		Progress: nonNil(rows),
	}, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
