// Package storetest provides an in-memory ProgressStore and AnalyticsStore for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/google/uuid"
)

type progressKey struct {
	user, target uuid.UUID
}

// Memory keeps records by value. Transaction serializes callers; a failed transaction
// restores the progress rows it touched.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex

	clock time.Time

	users          map[uuid.UUID]models.User
	courses        map[uuid.UUID]models.Course
	lessons        map[uuid.UUID]models.Lesson
	quizzes        map[uuid.UUID]models.Quiz
	lessonProgress map[progressKey]models.LessonProgress
	courseProgress map[progressKey]models.CourseProgress

	// FailCourseSave makes SaveCourseProgress return this error when set.
	FailCourseSave error
}

func NewMemory() *Memory {
	return &Memory{
		clock:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:          map[uuid.UUID]models.User{},
		courses:        map[uuid.UUID]models.Course{},
		lessons:        map[uuid.UUID]models.Lesson{},
		quizzes:        map[uuid.UUID]models.Quiz{},
		lessonProgress: map[progressKey]models.LessonProgress{},
		courseProgress: map[progressKey]models.CourseProgress{},
	}
}

// tick returns a strictly increasing timestamp used for CreatedAt and UpdatedAt.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) AddUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return u
}

func (m *Memory) AddCourse(c models.Course) models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = m.tick()
	m.courses[c.ID] = c
	return c
}

func (m *Memory) AddLesson(l models.Lesson) models.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	m.lessons[l.ID] = l
	if c, ok := m.courses[l.CourseID]; ok {
		c.LessonsCount++
		m.courses[c.ID] = c
	}
	return l
}

func (m *Memory) AddQuiz(q models.Quiz) models.Quiz {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	m.quizzes[q.LessonID] = q
	return q
}

// Enroll adds the user to the course set and creates the course progress row with the
// current lesson count.
func (m *Memory) Enroll(userID, courseID uuid.UUID) models.CourseProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.courses[courseID]
	c.Enroll(userID)
	m.courses[courseID] = c

	key := progressKey{userID, courseID}
	if cp, ok := m.courseProgress[key]; ok {
		return cp
	}
	total := 0
	for _, l := range m.lessons {
		if l.CourseID == courseID && l.IsPublished {
			total++
		}
	}
	now := m.tick()
	cp := models.CourseProgress{
		ID:           uuid.New(),
		UserID:       userID,
		CourseID:     courseID,
		TotalLessons: total,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.courseProgress[key] = cp
	return cp
}

// PutLessonProgress stores a row verbatim. Used to seed analytics fixtures.
func (m *Memory) PutLessonProgress(p models.LessonProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = m.tick()
	}
	m.lessonProgress[progressKey{p.UserID, p.LessonID}] = p
}

func (m *Memory) CourseProgressFor(userID, courseID uuid.UUID) (models.CourseProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.courseProgress[progressKey{userID, courseID}]
	return cp, ok
}

func (m *Memory) LessonProgressFor(userID, lessonID uuid.UUID) (models.LessonProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lessonProgress[progressKey{userID, lessonID}]
	return p, ok
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx services.ProgressStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	lessonSnapshot := make(map[progressKey]models.LessonProgress, len(m.lessonProgress))
	for k, v := range m.lessonProgress {
		lessonSnapshot[k] = v
	}
	courseSnapshot := make(map[progressKey]models.CourseProgress, len(m.courseProgress))
	for k, v := range m.courseProgress {
		courseSnapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.lessonProgress = lessonSnapshot
		m.courseProgress = courseSnapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) FindLesson(ctx context.Context, lessonID uuid.UUID) (*models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[lessonID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &l, nil
}

func (m *Memory) FindCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, services.ErrNotFound
	}
	c.EnrolledStudents = append(c.EnrolledStudents[:0:0], c.EnrolledStudents...)
	return &c, nil
}

func (m *Memory) FindQuizByLesson(ctx context.Context, lessonID uuid.UUID) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[lessonID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &q, nil
}

func (m *Memory) GetOrInitLessonProgress(ctx context.Context, userID uuid.UUID, lesson *models.Lesson) (*models.LessonProgress, services.Touch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey{userID, lesson.ID}
	if p, ok := m.lessonProgress[key]; ok {
		return &p, services.TouchExisting, nil
	}
	now := m.tick()
	p := models.LessonProgress{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lesson.ID,
		CourseID:  lesson.CourseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.lessonProgress[key] = p
	return &p, services.TouchCreated, nil
}

func (m *Memory) FindLessonProgress(ctx context.Context, userID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lessonProgress[progressKey{userID, lessonID}]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SaveLessonProgress(ctx context.Context, p *models.LessonProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = m.tick()
	m.lessonProgress[progressKey{p.UserID, p.LessonID}] = *p
	return nil
}

func (m *Memory) CountQualifiedLessons(ctx context.Context, userID, courseID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.lessonProgress {
		if p.UserID == userID && p.CourseID == courseID && p.IsQualified {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FindCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.courseProgress[progressKey{userID, courseID}]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &cp, nil
}

func (m *Memory) SaveCourseProgress(ctx context.Context, cp *models.CourseProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCourseSave != nil {
		return m.FailCourseSave
	}
	cp.UpdatedAt = m.tick()
	m.courseProgress[progressKey{cp.UserID, cp.CourseID}] = *cp
	return nil
}

func (m *Memory) ListCourseProgressByUser(ctx context.Context, userID uuid.UUID) ([]models.CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.CourseProgress
	for _, cp := range m.courseProgress {
		if cp.UserID == userID {
			rows = append(rows, cp)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	return rows, nil
}

func (m *Memory) ListRecentLessonProgressByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.LessonProgress
	for _, p := range m.lessonProgress {
		if p.UserID == userID {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].LastWatchedAt, rows[j].LastWatchedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return truncate(rows, limit), nil
}

func (m *Memory) ListLessonProgressByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.LessonProgress
	for _, p := range m.lessonProgress {
		if p.UserID == userID && p.CourseID == courseID {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return m.lessons[rows[i].LessonID].Order < m.lessons[rows[j].LessonID].Order
	})
	return rows, nil
}

func (m *Memory) ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var courses []models.Course
	for _, c := range m.courses {
		if c.InstructorID == instructorID {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (m *Memory) ListQualifiedProgressByCourses(ctx context.Context, courseIDs []uuid.UUID) ([]models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range courseIDs {
		wanted[id] = true
	}
	var rows []models.LessonProgress
	for _, p := range m.lessonProgress {
		if p.IsQualified && wanted[p.CourseID] {
			rows = append(rows, p)
		}
	}
	return rows, nil
}

func (m *Memory) ListLessonProgressByLesson(ctx context.Context, lessonID uuid.UUID) ([]models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.LessonProgress
	for _, p := range m.lessonProgress {
		if p.LessonID == lessonID {
			rows = append(rows, p)
		}
	}
	sortByUpdated(rows)
	return rows, nil
}

func (m *Memory) PlatformCounts(ctx context.Context) (services.PlatformCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := services.PlatformCounts{
		Courses:     int64(len(m.courses)),
		Lessons:     int64(len(m.lessons)),
		Enrollments: int64(len(m.courseProgress)),
	}
	for _, c := range m.courses {
		if c.IsPublished {
			counts.PublishedCourses++
		}
	}
	for _, cp := range m.courseProgress {
		if cp.IsCompleted {
			counts.CompletedCourses++
		}
	}
	for _, p := range m.lessonProgress {
		if p.IsQualified {
			counts.QualifiedLessons++
		}
	}
	return counts, nil
}

func (m *Memory) ListRecentLessonProgress(ctx context.Context, limit int) ([]models.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]models.LessonProgress, 0, len(m.lessonProgress))
	for _, p := range m.lessonProgress {
		rows = append(rows, p)
	}
	sortByUpdated(rows)
	return truncate(rows, limit), nil
}

func sortByUpdated(rows []models.LessonProgress) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

var (
	_ services.ProgressStore  = (*Memory)(nil)
	_ services.AnalyticsStore = (*Memory)(nil)
)
