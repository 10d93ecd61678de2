package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
	"github.com/campusloop/assess-api/internal/observability"
	"github.com/campusloop/assess-api/internal/repository"
)

// ErrAttemptNotFound indicates no attempt exists for the quiz and user.
var ErrAttemptNotFound = errors.New("quiz attempt not found")

// QuizAttemptService grades and stores quiz attempts.
type QuizAttemptService interface {
	Complete(ctx context.Context, contentID uint, actor ActivityActor, payload dto.AttemptCompleteRequest) (dto.AttemptResponse, error)
	GetForUser(ctx context.Context, contentID, userID uint) (dto.AttemptResponse, error)
	ListByQuiz(ctx context.Context, contentID uint) ([]dto.AttemptResponse, error)
}

type quizAttemptService struct {
	attempts  repository.QuizAttemptRepository
	quizzes   QuizService
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewQuizAttemptService constructs the attempt grading service.
func NewQuizAttemptService(attempts repository.QuizAttemptRepository, quizzes QuizService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) QuizAttemptService {
	return &quizAttemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "quiz_attempt_service").Logger(),
		tracer:    otel.Tracer("github.com/campusloop/assess-api/internal/service/quiz_attempt"),
		now:       time.Now,
	}
}

// Complete grades the submitted responses against the stored quiz and saves
// the attempt, replacing any earlier attempt by the same user.
func (s *quizAttemptService) Complete(ctx context.Context, contentID uint, actor ActivityActor, payload dto.AttemptCompleteRequest) (dto.AttemptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "quiz.attempt_complete", trace.WithAttributes(
		attribute.Int64("quiz.content_id", int64(contentID)),
		attribute.Int64("quiz.user_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.AttemptResponse{}, err
	}

	quiz, err := s.quizzes.GetForGrading(ctx, contentID)
	if err != nil {
		span.RecordError(err)
		return dto.AttemptResponse{}, err
	}

	endTime := s.now()
	startTime := payload.StartTime
	if startTime.IsZero() || startTime.After(endTime) {
		startTime = endTime
	}

	responses, earned := gradeResponses(quiz, payload.Responses)
	score := attemptScore(earned, quiz.TotalPoints())

	attempt := models.QuizAttempt{
		QuizID:    quiz.ID,
		UserID:    actor.ID,
		StartTime: startTime,
		EndTime:   &endTime,
		Score:     score,
		IsPassed:  score >= quiz.PassingScore,
		Responses: responses,
	}

	if err := s.attempts.Upsert(ctx, &attempt); err != nil {
		span.RecordError(err)
		return dto.AttemptResponse{}, err
	}

	observability.QuizAttemptsTotal().WithLabelValues(passLabel(attempt.IsPassed)).Inc()

	if s.activity != nil {
		id := attempt.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "quiz.attempt_completed",
			EntityType: "quiz_attempt",
			EntityID:   &id,
			Metadata: map[string]interface{}{
				"quiz_id":   quiz.ID,
				"score":     score,
				"is_passed": attempt.IsPassed,
			},
		})
	}

	span.SetAttributes(
		attribute.Int("quiz.score", score),
		attribute.Bool("quiz.passed", attempt.IsPassed),
	)

	s.logger.Info().
		Uint("quiz_id", quiz.ID).
		Uint("user_id", actor.ID).
		Int("score", score).
		Bool("passed", attempt.IsPassed).
		Msg("quiz attempt graded")

	return dto.NewAttemptResponse(attempt), nil
}

func (s *quizAttemptService) GetForUser(ctx context.Context, contentID, userID uint) (dto.AttemptResponse, error) {
	quiz, err := s.quizzes.GetForGrading(ctx, contentID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	attempt, err := s.attempts.GetByQuizAndUser(ctx, quiz.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptResponse{}, err
	}

	return dto.NewAttemptResponse(attempt), nil
}

func (s *quizAttemptService) ListByQuiz(ctx context.Context, contentID uint) ([]dto.AttemptResponse, error) {
	quiz, err := s.quizzes.GetForGrading(ctx, contentID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, dto.NewAttemptResponse(attempt))
	}
	return responses, nil
}

// gradeResponses reconciles each incoming response with a quiz question and
// grades it. Matching is by question id first, then by exact question text
// for responses captured before ids were assigned. Responses that match no
// question are dropped.
func gradeResponses(quiz models.Quiz, inputs []dto.QuestionResponseInput) ([]models.QuestionResponse, int) {
	byID := make(map[uint]models.Question, len(quiz.Questions))
	byText := make(map[string]models.Question, len(quiz.Questions))
	for _, question := range quiz.Questions {
		byID[question.ID] = question
		byText[strings.TrimSpace(question.Text)] = question
	}

	graded := make(map[uint]struct{}, len(inputs))
	responses := make([]models.QuestionResponse, 0, len(inputs))
	earned := 0

	for _, input := range inputs {
		question, ok := byID[input.QuestionID]
		if !ok || input.QuestionID == 0 {
			question, ok = byText[strings.TrimSpace(input.QuestionText)]
		}
		if !ok {
			continue
		}
		if _, done := graded[question.ID]; done {
			continue
		}
		graded[question.ID] = struct{}{}

		isCorrect, points := question.Grade(input.SelectedAnswerIDs, input.TextResponse)
		earned += points

		responses = append(responses, models.QuestionResponse{
			QuestionID:        question.ID,
			SelectedAnswerIDs: input.SelectedAnswerIDs,
			TextResponse:      input.TextResponse,
			IsCorrect:         isCorrect,
			PointsEarned:      points,
		})
	}

	return responses, earned
}

// attemptScore converts earned points into a 0..100 percentage, round half up.
// A quiz with no points always scores zero.
func attemptScore(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}

func passLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
