package journal

import (
	"context"
	"testing"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/google/uuid"
)

func TestEntryFromEvent(t *testing.T) {
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.FixedZone("AST", 3*3600))
	e := progress.Event{
		Kind:            progress.EventQuizSubmitted,
		UserID:          uuid.New(),
		LessonID:        uuid.New(),
		CourseID:        uuid.New(),
		WatchPercentage: 82.5,
		Score:           4,
		Passed:          true,
		At:              at,
	}
	entry := EntryFromEvent(e)
	if entry.Kind != "quiz_submitted" || entry.UserID != e.UserID.String() || entry.Score != 4 || !entry.Passed {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.At.Location() != time.UTC || !entry.At.Equal(at) {
		t.Fatalf("At = %v, want %v in UTC", entry.At, at)
	}
}

func TestDisabledJournal(t *testing.T) {
	j, err := Connect(context.Background(), config.MongoConfig{})
	if err != nil || j != nil {
		t.Fatalf("Connect with empty URI = %v, %v; want nil, nil", j, err)
	}
	if j.Enabled() {
		t.Fatal("nil journal should report disabled")
	}
	if err := j.Record(context.Background(), progress.Event{}); err != nil {
		t.Fatalf("Record on nil journal: %v", err)
	}
	entries, err := j.ListByUser(context.Background(), uuid.New(), 10)
	if err != nil || len(entries) != 0 {
		t.Fatalf("ListByUser on nil journal = %v, %v", entries, err)
	}
	j.HandleProgressEvent(context.Background(), progress.Event{})
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int64]int64{0: DefaultLimit, -5: DefaultLimit, 20: 20, 10000: MaxLimit} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
