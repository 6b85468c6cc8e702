package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/services/storetest"
	"github.com/google/uuid"
)

type fixture struct {
	store      *storetest.Memory
	svc        *services.ProgressService
	events     *eventLog
	instructor uuid.UUID
	student    uuid.UUID
	course     models.Course
	lessons    []models.Lesson
}

type eventLog struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *eventLog) HandleProgressEvent(_ context.Context, e progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []progress.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]progress.EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func (l *eventLog) count(kind progress.EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func quizQuestions(n int) []models.QuizQuestion {
	qs := make([]models.QuizQuestion, n)
	for i := range qs {
		qs[i] = models.QuizQuestion{
			ID:            uuid.NewString(),
			Question:      "What is the answer?",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: i % 3,
		}
	}
	return qs
}

func correctAnswers(qs []models.QuizQuestion) []int {
	answers := make([]int, len(qs))
	for i, q := range qs {
		answers[i] = q.CorrectAnswer
	}
	return answers
}

// newFixture builds a published course with the given number of lessons, each with a
// three-question quiz (passing score 2) and an 80% watch requirement, and enrolls a student.
func newFixture(t *testing.T, lessonCount int) *fixture {
	t.Helper()
	store := storetest.NewMemory()
	events := &eventLog{}
	f := &fixture{
		store:      store,
		svc:        services.NewProgressService(store, events),
		events:     events,
		instructor: uuid.New(),
		student:    uuid.New(),
	}
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	f.svc.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	f.course = store.AddCourse(models.Course{Title: "Tajweed Basics", InstructorID: f.instructor, IsPublished: true})
	for i := 0; i < lessonCount; i++ {
		lesson := store.AddLesson(models.Lesson{
			CourseID:               f.course.ID,
			Title:                  "Lesson",
			Order:                  i + 1,
			IsPublished:            true,
			MinimumWatchPercentage: models.DefaultMinimumWatchPercentage,
		})
		store.AddQuiz(models.Quiz{LessonID: lesson.ID, Questions: quizQuestions(3), PassingScore: 2})
		f.lessons = append(f.lessons, lesson)
	}
	store.Enroll(f.student, f.course.ID)
	return f
}

func (f *fixture) answers(t *testing.T, lessonID uuid.UUID) []int {
	t.Helper()
	quiz, err := f.store.FindQuizByLesson(context.Background(), lessonID)
	if err != nil {
		t.Fatalf("quiz lookup failed: %v", err)
	}
	return correctAnswers(quiz.Questions)
}

func (f *fixture) qualify(t *testing.T, lessonID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.RecordWatch(ctx, f.student, lessonID, 90); err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}
	if _, err := f.svc.SubmitQuiz(ctx, f.student, lessonID, f.answers(t, lessonID)); err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
}

func TestRecordWatch(t *testing.T) {
	ctx := context.Background()

	t.Run("first touch creates the row", func(t *testing.T) {
		f := newFixture(t, 1)
		res, err := f.svc.RecordWatch(ctx, f.student, f.lessons[0].ID, 40)
		if err != nil {
			t.Fatalf("RecordWatch failed: %v", err)
		}
		if res.Touch != services.TouchCreated {
			t.Errorf("Touch = %v, want created", res.Touch)
		}
		res, _ = f.svc.RecordWatch(ctx, f.student, f.lessons[0].ID, 50)
		if res.Touch != services.TouchExisting {
			t.Errorf("second Touch = %v, want existing", res.Touch)
		}
	})

	t.Run("regressions are ignored", func(t *testing.T) {
		f := newFixture(t, 1)
		for _, pct := range []float64{30, 70, 20, 65} {
			if _, err := f.svc.RecordWatch(ctx, f.student, f.lessons[0].ID, pct); err != nil {
				t.Fatalf("RecordWatch(%v) failed: %v", pct, err)
			}
		}
		p, _ := f.store.LessonProgressFor(f.student, f.lessons[0].ID)
		if p.WatchPercentage != 70 {
			t.Fatalf("WatchPercentage = %v, want 70", p.WatchPercentage)
		}
	})

	t.Run("out of range percentage", func(t *testing.T) {
		f := newFixture(t, 1)
		for _, pct := range []float64{-1, 100.5} {
			if _, err := f.svc.RecordWatch(ctx, f.student, f.lessons[0].ID, pct); !errors.Is(err, services.ErrValidation) {
				t.Errorf("RecordWatch(%v) error = %v, want ErrValidation", pct, err)
			}
		}
	})

	t.Run("unknown lesson", func(t *testing.T) {
		f := newFixture(t, 1)
		if _, err := f.svc.RecordWatch(ctx, f.student, uuid.New(), 50); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

// Watch to 60%, pass the quiz, then watch to 85%.
func TestWatchAfterPassQualifiesLesson(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	lesson := f.lessons[0]

	res, err := f.svc.RecordWatch(ctx, f.student, lesson.ID, 60)
	if err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}
	if res.Progress.IsQualified {
		t.Fatal("lesson must not qualify at 60% without a quiz pass")
	}

	quiz, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, f.answers(t, lesson.ID))
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if !quiz.Passed || !quiz.Progress.QuizPassed || quiz.Progress.IsQualified {
		t.Fatalf("after passing at 60%%: passed=%v quizPassed=%v qualified=%v", quiz.Passed, quiz.Progress.QuizPassed, quiz.Progress.IsQualified)
	}
	if quiz.CourseProgress != nil {
		t.Fatal("course rollup must not run before the watch threshold is met")
	}

	res, err = f.svc.RecordWatch(ctx, f.student, lesson.ID, 85)
	if err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}
	if !res.Progress.IsQualified || res.Progress.CompletedAt == nil || !res.NewlyQualified {
		t.Fatalf("lesson should qualify at 85%%: %+v", res.Progress)
	}
}

// Qualifying through the watch path also rolls up the course, so completed lessons are
// never under-counted until the next quiz submission.
func TestWatchPathQualificationRollsUpCourse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	lesson := f.lessons[0]

	if _, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, f.answers(t, lesson.ID)); err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	res, err := f.svc.RecordWatch(ctx, f.student, lesson.ID, 95)
	if err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}
	if res.CourseProgress == nil {
		t.Fatal("watch-path qualification should return the rolled-up course progress")
	}
	cp, _ := f.store.CourseProgressFor(f.student, f.course.ID)
	if cp.CompletedLessons != 1 || cp.ProgressPercentage != 50 {
		t.Fatalf("course progress = %d lessons / %v%%, want 1 / 50%%", cp.CompletedLessons, cp.ProgressPercentage)
	}
	if f.events.count(progress.EventLessonQualified) != 1 {
		t.Fatalf("events = %v, want one lesson_qualified", f.events.kinds())
	}
}

// Five questions with a passing score of three, then a weaker retake.
func TestQuizRetakeKeepsBestScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	lesson := f.lessons[0]
	qs := quizQuestions(5)
	f.store.AddQuiz(models.Quiz{LessonID: lesson.ID, Questions: qs, PassingScore: 3})

	answers := correctAnswers(qs)
	answers[3] = (answers[3] + 1) % 3
	answers[4] = (answers[4] + 1) % 3
	first, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if first.Score != 3 || !first.Passed || first.TotalQuestions != 5 || first.PassingScore != 3 {
		t.Fatalf("first attempt = %+v", first)
	}

	answers[2] = (answers[2] + 1) % 3
	second, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if second.Score != 2 || second.Passed {
		t.Fatalf("second attempt score=%d passed=%v, want 2 and false", second.Score, second.Passed)
	}
	p := second.Progress
	if p.QuizScore != 3 || p.QuizAttempts != 2 || !p.QuizPassed {
		t.Fatalf("progress after retake: score=%d attempts=%d passed=%v", p.QuizScore, p.QuizAttempts, p.QuizPassed)
	}
}

func TestIdenticalRetryOnlyCountsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	lesson := f.lessons[0]
	answers := []int{0, 0, 0}

	first, _ := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, answers)
	second, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, answers)
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if second.Progress.QuizAttempts != 2 || second.Progress.QuizScore != first.Progress.QuizScore {
		t.Fatalf("attempts=%d score=%d, want 2 and %d", second.Progress.QuizAttempts, second.Progress.QuizScore, first.Progress.QuizScore)
	}
}

// Four lessons: three qualifying passes leave the course at 75%, the fourth completes it.
func TestCourseCompletion(t *testing.T) {
	f := newFixture(t, 4)

	for _, lesson := range f.lessons[:3] {
		f.qualify(t, lesson.ID)
	}
	cp, _ := f.store.CourseProgressFor(f.student, f.course.ID)
	if cp.CompletedLessons != 3 || cp.ProgressPercentage != 75 || cp.IsCompleted || cp.CompletedAt != nil {
		t.Fatalf("after three lessons: %+v", cp)
	}

	f.qualify(t, f.lessons[3].ID)
	cp, _ = f.store.CourseProgressFor(f.student, f.course.ID)
	if cp.CompletedLessons != 4 || cp.ProgressPercentage != 100 || !cp.IsCompleted || cp.CompletedAt == nil {
		t.Fatalf("after four lessons: %+v", cp)
	}
	if f.events.count(progress.EventCourseCompleted) != 1 {
		t.Fatalf("events = %v, want exactly one course_completed", f.events.kinds())
	}

	completedAt := *cp.CompletedAt
	f.qualify(t, f.lessons[0].ID)
	cp, _ = f.store.CourseProgressFor(f.student, f.course.ID)
	if !cp.CompletedAt.Equal(completedAt) {
		t.Fatalf("course CompletedAt changed from %v to %v", completedAt, *cp.CompletedAt)
	}
	if f.events.count(progress.EventCourseCompleted) != 1 {
		t.Fatal("completion must be announced once")
	}
}

func TestLessonCompletedAtIsImmutable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	lesson := f.lessons[0]
	f.qualify(t, lesson.ID)
	before, _ := f.store.LessonProgressFor(f.student, lesson.ID)

	f.svc.RecordWatch(ctx, f.student, lesson.ID, 100)
	f.svc.SubmitQuiz(ctx, f.student, lesson.ID, []int{})
	after, _ := f.store.LessonProgressFor(f.student, lesson.ID)

	if !after.IsQualified || !after.CompletedAt.Equal(*before.CompletedAt) {
		t.Fatalf("CompletedAt changed from %v to %v", before.CompletedAt, after.CompletedAt)
	}
}

func TestRollupSkippedWithoutEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	outsider := uuid.New()
	lesson := f.lessons[0]

	if _, err := f.svc.RecordWatch(ctx, outsider, lesson.ID, 100); err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}
	res, err := f.svc.SubmitQuiz(ctx, outsider, lesson.ID, f.answers(t, lesson.ID))
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if !res.Progress.IsQualified || res.CourseProgress != nil {
		t.Fatalf("qualified=%v courseProgress=%v, want qualified with no course row", res.Progress.IsQualified, res.CourseProgress)
	}
}

func TestSubmitQuizNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	bare := f.store.AddLesson(models.Lesson{CourseID: f.course.ID, Order: 2, IsPublished: true, MinimumWatchPercentage: 80})

	if _, err := f.svc.SubmitQuiz(ctx, f.student, bare.ID, []int{0}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for a lesson without quiz", err)
	}
	if _, err := f.svc.SubmitQuiz(ctx, f.student, uuid.New(), []int{0}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for a missing lesson", err)
	}
}

// A failing course write rolls back the lesson write made in the same call.
func TestFailedRollupLeavesNoPartialWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	lesson := f.lessons[0]
	if _, err := f.svc.RecordWatch(ctx, f.student, lesson.ID, 90); err != nil {
		t.Fatalf("RecordWatch failed: %v", err)
	}

	f.store.FailCourseSave = errors.New("disk full")
	if _, err := f.svc.SubmitQuiz(ctx, f.student, lesson.ID, f.answers(t, lesson.ID)); err == nil {
		t.Fatal("expected the rollup failure to surface")
	}
	p, _ := f.store.LessonProgressFor(f.student, lesson.ID)
	if p.QuizAttempts != 0 || p.IsQualified {
		t.Fatalf("lesson progress was partially written: %+v", p)
	}
	if n := f.events.count(progress.EventQuizSubmitted); n != 0 {
		t.Fatalf("no events should be emitted for a failed call, got %d", n)
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	lesson := f.lessons[0]
	answers := f.answers(t, lesson.ID)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(pct float64) {
			defer wg.Done()
			f.svc.RecordWatch(ctx, f.student, lesson.ID, pct)
		}(float64(50 + i))
		go func() {
			defer wg.Done()
			f.svc.SubmitQuiz(ctx, f.student, lesson.ID, answers)
		}()
	}
	wg.Wait()

	p, _ := f.store.LessonProgressFor(f.student, lesson.ID)
	if p.QuizAttempts != 20 || p.WatchPercentage != 69 || !p.QuizPassed {
		t.Fatalf("attempts=%d watch=%v passed=%v, want 20, 69, true", p.QuizAttempts, p.WatchPercentage, p.QuizPassed)
	}
}

func TestGetLessonProgressDefaults(t *testing.T) {
	f := newFixture(t, 1)
	p, err := f.svc.GetLessonProgress(context.Background(), f.student, f.lessons[0].ID)
	if err != nil {
		t.Fatalf("GetLessonProgress failed: %v", err)
	}
	if p.WatchPercentage != 0 || p.IsQualified || p.CourseID != f.course.ID {
		t.Fatalf("unexpected default progress %+v", p)
	}
}

func TestAuthorizeLessonAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	draft := f.store.AddLesson(models.Lesson{CourseID: f.course.ID, Order: 2, IsPublished: false, MinimumWatchPercentage: 80})

	tests := []struct {
		name    string
		actor   services.Actor
		lesson  uuid.UUID
		wantErr error
	}{
		{"enrolled student", services.Actor{ID: f.student, Role: models.RoleStudent}, f.lessons[0].ID, nil},
		{"owner", services.Actor{ID: f.instructor, Role: models.RoleInstructor}, draft.ID, nil},
		{"admin", services.Actor{ID: uuid.New(), Role: models.RoleAdmin}, draft.ID, nil},
		{"stranger", services.Actor{ID: uuid.New(), Role: models.RoleStudent}, f.lessons[0].ID, services.ErrForbidden},
		{"other instructor", services.Actor{ID: uuid.New(), Role: models.RoleInstructor}, f.lessons[0].ID, services.ErrForbidden},
		{"student on draft lesson", services.Actor{ID: f.student, Role: models.RoleStudent}, draft.ID, services.ErrNotFound},
		{"missing lesson", services.Actor{ID: f.student, Role: models.RoleStudent}, uuid.New(), services.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AuthorizeLessonAccess(ctx, tt.actor, tt.lesson)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
