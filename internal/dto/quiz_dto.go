package dto

import (
	"time"

	"github.com/campusloop/assess-api/internal/models"
)

// AnswerInput is one selectable option when authoring a choice question.
type AnswerInput struct {
	ID        uint   `json:"id"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionInput is one quiz item in the authoring payload.
type QuestionInput struct {
	ID      uint          `json:"id"`
	Text    string        `json:"text" validate:"required"`
	Type    string        `json:"type" validate:"required,oneof=single_choice multiple_choice true_false short_answer essay"`
	Points  int           `json:"points" validate:"required,gt=0"`
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

// QuizSaveRequest persists an authored quiz onto a content row.
type QuizSaveRequest struct {
	Title              string          `json:"title" validate:"required,min=1,max=255"`
	Description        string          `json:"description"`
	TimeLimitMinutes   int             `json:"time_limit_minutes" validate:"required,gt=0"`
	PassingScore       int             `json:"passing_score" validate:"gte=0,lte=100"`
	RandomizeQuestions bool            `json:"randomize_questions"`
	ShowCorrectAnswers bool            `json:"show_correct_answers"`
	Questions          []QuestionInput `json:"questions" validate:"dive"`
}

// QuestionResponseInput is one learner answer handed to the grading engine at
// attempt completion. QuestionText allows reconciliation when the client built
// responses before the quiz was persisted and ids are still unset.
type QuestionResponseInput struct {
	QuestionID        uint   `json:"question_id"`
	QuestionText      string `json:"question_text"`
	SelectedAnswerIDs []uint `json:"selected_answer_ids"`
	TextResponse      string `json:"text_response"`
}

// AttemptCompleteRequest finishes a quiz attempt and triggers auto-grading.
type AttemptCompleteRequest struct {
	StartTime time.Time               `json:"start_time"`
	Responses []QuestionResponseInput `json:"responses" validate:"dive"`
}

// QuestionResponseResult reports the graded outcome of one response.
type QuestionResponseResult struct {
	QuestionID        uint   `json:"question_id"`
	SelectedAnswerIDs []uint `json:"selected_answer_ids"`
	TextResponse      string `json:"text_response"`
	IsCorrect         bool   `json:"is_correct"`
	PointsEarned      int    `json:"points_earned"`
}

// AttemptResponse is the graded attempt returned to the learner.
type AttemptResponse struct {
	ID        uint                     `json:"id"`
	QuizID    uint                     `json:"quiz_id"`
	UserID    uint                     `json:"user_id"`
	StartTime time.Time                `json:"start_time"`
	EndTime   *time.Time               `json:"end_time"`
	Score     int                      `json:"score"`
	IsPassed  bool                     `json:"is_passed"`
	Responses []QuestionResponseResult `json:"responses"`
}

// NewAttemptResponse maps an attempt model to its API shape.
func NewAttemptResponse(attempt models.QuizAttempt) AttemptResponse {
	responses := make([]QuestionResponseResult, 0, len(attempt.Responses))
	for _, response := range attempt.Responses {
		responses = append(responses, QuestionResponseResult{
			QuestionID:        response.QuestionID,
			SelectedAnswerIDs: response.SelectedAnswerIDs,
			TextResponse:      response.TextResponse,
			IsCorrect:         response.IsCorrect,
			PointsEarned:      response.PointsEarned,
		})
	}

	return AttemptResponse{
		ID:        attempt.ID,
		QuizID:    attempt.QuizID,
		UserID:    attempt.UserID,
		StartTime: attempt.StartTime,
		EndTime:   attempt.EndTime,
		Score:     attempt.Score,
		IsPassed:  attempt.IsPassed,
		Responses: responses,
	}
}

// AnswerView serializes one answer option. Correctness flags are included only
// when the quiz is configured to reveal them.
type AnswerView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionView serializes one question for attempt-taking clients.
type QuestionView struct {
	ID      uint         `json:"id"`
	Text    string       `json:"text"`
	Type    string       `json:"type"`
	Points  int          `json:"points"`
	Answers []AnswerView `json:"answers"`
}

// QuizResponse is the quiz as presented to clients.
type QuizResponse struct {
	ID                 uint           `json:"id"`
	ContentID          uint           `json:"content_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	TimeLimitMinutes   int            `json:"time_limit_minutes"`
	PassingScore       int            `json:"passing_score"`
	RandomizeQuestions bool           `json:"randomize_questions"`
	ShowCorrectAnswers bool           `json:"show_correct_answers"`
	Questions          []QuestionView `json:"questions"`
}

// NewQuizResponse maps a quiz to its API shape, hiding answer correctness
// unless the quiz reveals it.
func NewQuizResponse(quiz models.Quiz, revealAnswers bool) QuizResponse {
	questions := make([]QuestionView, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		answers := make([]AnswerView, 0, len(question.Answers))
		for _, answer := range question.Answers {
			view := AnswerView{ID: answer.ID, Text: answer.Text}
			if revealAnswers {
				isCorrect := answer.IsCorrect
				view.IsCorrect = &isCorrect
			}
			answers = append(answers, view)
		}
		questions = append(questions, QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Type:    question.Type,
			Points:  question.Points,
			Answers: answers,
		})
	}

	return QuizResponse{
		ID:                 quiz.ID,
		ContentID:          quiz.ContentID,
		Title:              quiz.Title,
		Description:        quiz.Description,
		TimeLimitMinutes:   quiz.TimeLimitMinutes,
		PassingScore:       quiz.PassingScore,
		RandomizeQuestions: quiz.RandomizeQuestions,
		ShowCorrectAnswers: quiz.ShowCorrectAnswers,
		Questions:          questions,
	}
}
