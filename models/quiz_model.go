package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const OptionsPerQuestion = 3

type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

type Quiz struct {
	ID           uuid.UUID                         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	LessonID     uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex" json:"lesson_id"`
	Questions    datatypes.JSONSlice[QuizQuestion] `gorm:"type:jsonb;not null" json:"questions"`
	PassingScore int                               `gorm:"not null" json:"passing_score"`

	Lesson *Lesson `gorm:"foreignkey:LessonID" json:"lesson,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PublicQuizQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// PublicQuiz is the quiz as shown to students: correct answers are stripped.
type PublicQuiz struct {
	ID             uuid.UUID            `json:"id"`
	LessonID       uuid.UUID            `json:"lesson_id"`
	Questions      []PublicQuizQuestion `json:"questions"`
	PassingScore   int                  `json:"passing_score"`
	TotalQuestions int                  `json:"total_questions"`
}

func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = PublicQuizQuestion{
			ID:       question.ID,
			Question: question.Question,
			Options:  append([]string(nil), question.Options...),
		}
	}
	return PublicQuiz{
		ID:             q.ID,
		LessonID:       q.LessonID,
		Questions:      questions,
		PassingScore:   q.PassingScore,
		TotalQuestions: len(q.Questions),
	}
}
