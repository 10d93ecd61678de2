package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Question kinds supported by the auto-grading engine.
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
	QuestionEssay          = "essay"
)

// Quiz is authored by a teacher and stored as a versioned JSON blob on a
// course content row; it is not a table of its own.
type Quiz struct {
	ID                 uint       `json:"id"`
	ContentID          uint       `json:"content_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	TimeLimitMinutes   int        `json:"time_limit_minutes"`
	PassingScore       int        `json:"passing_score"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	ShowCorrectAnswers bool       `json:"show_correct_answers"`
	Questions          []Question `json:"questions"`
}

// Question is one quiz item. Choice kinds carry answers; text kinds do not.
type Question struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Points  int      `json:"points"`
	Answers []Answer `json:"answers,omitempty"`
}

// Answer is one selectable option on a choice question.
type Answer struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// TimeLimit returns the configured attempt duration.
func (q Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// IsChoice reports whether the question is graded by answer selection.
func (q Question) IsChoice() bool {
	switch q.Type {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionTrueFalse:
		return true
	case QuestionShortAnswer, QuestionEssay:
		return false
	default:
		return false
	}
}

// CorrectAnswerSet returns the ids of every answer flagged correct.
func (q Question) CorrectAnswerSet() map[uint]struct{} {
	correct := make(map[uint]struct{})
	for _, answer := range q.Answers {
		if answer.IsCorrect {
			correct[answer.ID] = struct{}{}
		}
	}
	return correct
}

// Grade evaluates a single response against the question and returns whether
// it is correct together with the points earned. Choice kinds require the
// selected set to equal the correct set exactly; a superset or subset in
// either direction earns nothing. Text kinds accept any non-blank response,
// pending manual review.
func (q Question) Grade(selectedAnswerIDs []uint, textResponse string) (bool, int) {
	if q.IsChoice() {
		selected := make(map[uint]struct{}, len(selectedAnswerIDs))
		for _, id := range selectedAnswerIDs {
			selected[id] = struct{}{}
		}

		correct := q.CorrectAnswerSet()
		if len(selected) != len(correct) {
			return false, 0
		}
		for id := range selected {
			if _, ok := correct[id]; !ok {
				return false, 0
			}
		}
		return true, q.Points
	}

	if strings.TrimSpace(textResponse) == "" {
		return false, 0
	}
	return true, q.Points
}

// QuizAttempt is the single retained pass of one learner through a quiz.
// A retake overwrites the existing row rather than archiving it.
type QuizAttempt struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	QuizID    uint               `gorm:"not null;uniqueIndex:idx_quiz_attempts_quiz_user" json:"quiz_id"`
	UserID    uint               `gorm:"not null;uniqueIndex:idx_quiz_attempts_quiz_user" json:"user_id"`
	StartTime time.Time          `json:"start_time"`
	EndTime   *time.Time         `json:"end_time"`
	Score     int                `json:"score"`
	IsPassed  bool               `json:"is_passed"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Responses []QuestionResponse `gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"responses"`
	Quiz      Quiz               `gorm:"-" json:"-"`
}

// QuestionResponse records the learner's answer to one question and the
// grading outcome.
type QuestionResponse struct {
	ID                uint                      `gorm:"primaryKey" json:"id"`
	AttemptID         uint                      `gorm:"index;not null" json:"attempt_id"`
	QuestionID        uint                      `gorm:"not null" json:"question_id"`
	SelectedAnswerIDs datatypes.JSONSlice[uint] `gorm:"type:json" json:"selected_answer_ids"`
	TextResponse      string                    `gorm:"type:text" json:"text_response"`
	IsCorrect         bool                      `json:"is_correct"`
	PointsEarned      int                       `json:"points_earned"`
}
