// Package journal appends progress events to a MongoDB collection so admins can audit how
// a student's progress evolved. The journal is optional; a nil *Journal is a no-op.
package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/progress"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionName = "progress_events"
	DefaultLimit   = 50
	MaxLimit       = 500

	writeTimeout = 5 * time.Second
)

// Entry is the stored shape of one progress event.
type Entry struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind            string             `bson:"kind" json:"kind"`
	UserID          string             `bson:"user_id" json:"user_id"`
	LessonID        string             `bson:"lesson_id" json:"lesson_id"`
	CourseID        string             `bson:"course_id" json:"course_id"`
	WatchPercentage float64            `bson:"watch_percentage" json:"watch_percentage"`
	Score           int                `bson:"score,omitempty" json:"score,omitempty"`
	Passed          bool               `bson:"passed,omitempty" json:"passed,omitempty"`
	Qualified       bool               `bson:"qualified" json:"qualified"`
	CoursePercent   float64            `bson:"course_progress_percentage,omitempty" json:"course_progress_percentage,omitempty"`
	At              time.Time          `bson:"at" json:"at"`
}

func EntryFromEvent(e progress.Event) Entry {
	return Entry{
		Kind:            string(e.Kind),
		UserID:          e.UserID.String(),
		LessonID:        e.LessonID.String(),
		CourseID:        e.CourseID.String(),
		WatchPercentage: e.WatchPercentage,
		Score:           e.Score,
		Passed:          e.Passed,
		Qualified:       e.Qualified,
		CoursePercent:   e.CourseProgressPercentage,
		At:              e.At.UTC(),
	}
}

type Journal struct {
	client *mongo.Client
	events *mongo.Collection
}

// Connect opens the journal. An empty URI disables it and returns nil.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Journal, error) {
	if cfg.URI == "" {
		log.Println("⚠️ MONGO_URI not set, progress journal disabled")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	events := client.Database(cfg.Database).Collection(CollectionName)
	_, err = events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}},
	})
	if err != nil {
		log.Printf("⚠️ Failed to ensure progress journal index: %v", err)
	}

	log.Printf("✅ Progress journal connected (database: %s)", cfg.Database)
	return &Journal{client: client, events: events}, nil
}

func (j *Journal) Close(ctx context.Context) error {
	if j == nil {
		return nil
	}
	return j.client.Disconnect(ctx)
}

func (j *Journal) Enabled() bool {
	return j != nil
}

func (j *Journal) Record(ctx context.Context, e progress.Event) error {
	if j == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := j.events.InsertOne(ctx, EntryFromEvent(e))
	return err
}

// ListByUser returns the user's latest entries, newest first.
func (j *Journal) ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]Entry, error) {
	if j == nil {
		return []Entry{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(ClampLimit(limit))
	cursor, err := j.events.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func ClampLimit(limit int64) int64 {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// HandleProgressEvent writes the event in the background. Failures are logged only.
func (j *Journal) HandleProgressEvent(_ context.Context, e progress.Event) {
	if j == nil {
		return
	}
	go func() {
		if err := j.Record(context.Background(), e); err != nil {
			log.Printf("⚠️ Failed to journal %s for user %s: %v", e.Kind, e.UserID, err)
		}
	}()
}
