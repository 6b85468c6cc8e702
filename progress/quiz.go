package progress

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aiqda/aiqda-backend/models"
)

const (
	MinQuestions = 1
	MaxQuestions = 8
)

var ErrInvalidQuiz = errors.New("invalid quiz")

// AnswerResult is the per-question breakdown returned after a submission. Correct answers
// are revealed on purpose once the quiz has been taken.
type AnswerResult struct {
	Question       string `json:"question"`
	SelectedAnswer *int   `json:"selected_answer"`
	CorrectAnswer  int    `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// DefaultPassingScore is 60% of the question count, rounded up.
func DefaultPassingScore(questionCount int) int {
	return int(math.Ceil(float64(questionCount) * 0.6))
}

// ScoreAnswers grades answers by position: answers[i] is compared with questions[i].
// Missing answers count as wrong and extra answers are ignored.
func ScoreAnswers(questions []models.QuizQuestion, answers []int) (int, []AnswerResult) {
	score := 0
	results := make([]AnswerResult, len(questions))
	for i, q := range questions {
		result := AnswerResult{Question: q.Question, CorrectAnswer: q.CorrectAnswer}
		if i < len(answers) {
			selected := answers[i]
			result.SelectedAnswer = &selected
			result.IsCorrect = selected == q.CorrectAnswer
		}
		if result.IsCorrect {
			score++
		}
		results[i] = result
	}
	return score, results
}

// ValidateQuiz checks the question shape and the passing score. It is run on every write.
func ValidateQuiz(questions []models.QuizQuestion, passingScore int) error {
	if len(questions) < MinQuestions || len(questions) > MaxQuestions {
		return fmt.Errorf("%w: a quiz needs between %d and %d questions, got %d", ErrInvalidQuiz, MinQuestions, MaxQuestions, len(questions))
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidQuiz, i+1)
		}
		if len(q.Options) != models.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d must have exactly %d options, got %d", ErrInvalidQuiz, i+1, models.OptionsPerQuestion, len(q.Options))
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d option %d is empty", ErrInvalidQuiz, i+1, j+1)
			}
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= models.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d correct answer must be 0, 1 or 2", ErrInvalidQuiz, i+1)
		}
	}
	if passingScore < 1 || passingScore > len(questions) {
		return fmt.Errorf("%w: passing score must be between 1 and %d", ErrInvalidQuiz, len(questions))
	}
	return nil
}
