package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
	"github.com/campusloop/assess-api/internal/repository"
)

// ErrContentNotFound indicates the course content row does not exist.
var ErrContentNotFound = errors.New("content not found")

// ErrNotQuizContent indicates the content row does not hold a quiz.
var ErrNotQuizContent = errors.New("content is not a quiz")

// ErrQuizInvalid indicates a quiz payload failed schema validation.
var ErrQuizInvalid = errors.New("quiz payload is invalid")

// quizEnvelopeVersion is the current schema version of the stored quiz blob.
const quizEnvelopeVersion = 1

// Defaults applied when a quiz blob is missing or unreadable, so learners get
// a harmless empty quiz instead of an error page.
const (
	fallbackTimeLimitMinutes = 30
	fallbackPassingScore     = 70
)

// quizEnvelope wraps the quiz blob with a schema version so future format
// changes can be migrated on read.
type quizEnvelope struct {
	Version int         `json:"version"`
	Quiz    models.Quiz `json:"quiz"`
}

// quizEnvelopeSchema validates stored and incoming quiz blobs.
const quizEnvelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "quiz"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "quiz": {
      "type": "object",
      "required": ["title", "time_limit_minutes", "passing_score"],
      "properties": {
        "id": {"type": "integer", "minimum": 0},
        "title": {"type": "string", "minLength": 1},
        "time_limit_minutes": {"type": "integer", "minimum": 1},
        "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
        "questions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["text", "type", "points"],
            "properties": {
              "id": {"type": "integer", "minimum": 0},
              "text": {"type": "string", "minLength": 1},
              "type": {"enum": ["single_choice", "multiple_choice", "true_false", "short_answer", "essay"]},
              "points": {"type": "integer", "minimum": 1},
              "answers": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["text"],
                  "properties": {
                    "id": {"type": "integer", "minimum": 0},
                    "text": {"type": "string"},
                    "is_correct": {"type": "boolean"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// QuizService stores and retrieves quizzes from course content rows.
type QuizService interface {
	Get(ctx context.Context, contentID uint) (dto.QuizResponse, error)
	GetForGrading(ctx context.Context, contentID uint) (models.Quiz, error)
	Save(ctx context.Context, contentID uint, payload dto.QuizSaveRequest, actor ActivityActor) (dto.QuizResponse, error)
}

type quizService struct {
	contents  repository.ContentRepository
	validator *validator.Validate
	activity  ActivityRecorder
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewQuizService constructs the quiz storage service.
func NewQuizService(contents repository.ContentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) QuizService {
	schema := jsonschema.MustCompileString("quiz_envelope.json", quizEnvelopeSchema)
	return &quizService{
		contents:  contents,
		validator: validate,
		activity:  activity,
		schema:    schema,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
	}
}

func (s *quizService) Get(ctx context.Context, contentID uint) (dto.QuizResponse, error) {
	quiz, err := s.GetForGrading(ctx, contentID)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	return dto.NewQuizResponse(quiz, quiz.ShowCorrectAnswers), nil
}

// GetForGrading loads the full quiz including answer correctness. A content
// row whose blob is missing or unreadable yields an empty quiz with safe
// defaults rather than an error; the condition is logged and audited so it
// never degrades silently.
func (s *quizService) GetForGrading(ctx context.Context, contentID uint) (models.Quiz, error) {
	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quiz{}, ErrContentNotFound
		}
		return models.Quiz{}, err
	}

	if !content.IsQuiz() {
		return models.Quiz{}, ErrNotQuizContent
	}

	quiz, ok := s.decode(ctx, content)
	if !ok {
		return s.fallbackQuiz(ctx, content), nil
	}

	quiz.ContentID = content.ID
	if quiz.ID == 0 {
		quiz.ID = content.ID
	}
	return quiz, nil
}

func (s *quizService) Save(ctx context.Context, contentID uint, payload dto.QuizSaveRequest, actor ActivityActor) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrContentNotFound
		}
		return dto.QuizResponse{}, err
	}

	if !content.IsQuiz() {
		return dto.QuizResponse{}, ErrNotQuizContent
	}

	quiz := models.Quiz{
		ID:                 content.ID,
		ContentID:          content.ID,
		Title:              payload.Title,
		Description:        payload.Description,
		TimeLimitMinutes:   payload.TimeLimitMinutes,
		PassingScore:       payload.PassingScore,
		RandomizeQuestions: payload.RandomizeQuestions,
		ShowCorrectAnswers: payload.ShowCorrectAnswers,
		Questions:          buildQuestions(payload.Questions),
	}

	envelope := quizEnvelope{Version: quizEnvelopeVersion, Quiz: quiz}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	if err := s.validateEnvelope(raw); err != nil {
		return dto.QuizResponse{}, err
	}

	if err := s.contents.UpdateData(ctx, content.ID, datatypes.JSON(raw)); err != nil {
		return dto.QuizResponse{}, err
	}

	if s.activity != nil {
		id := content.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "quiz.saved",
			EntityType: "content",
			EntityID:   &id,
			Metadata: map[string]interface{}{
				"question_count": len(quiz.Questions),
				"version":        quizEnvelopeVersion,
			},
		})
	}

	s.logger.Info().
		Uint("content_id", content.ID).
		Int("questions", len(quiz.Questions)).
		Msg("quiz saved")

	return dto.NewQuizResponse(quiz, true), nil
}

// decode parses the stored blob, migrating legacy bare-quiz payloads that
// predate the versioned envelope.
func (s *quizService) decode(ctx context.Context, content models.CourseContent) (models.Quiz, bool) {
	if len(content.Data) == 0 {
		s.logger.Error().
			Uint("content_id", content.ID).
			Msg("quiz content has no stored blob, serving fallback quiz")
		return models.Quiz{}, false
	}

	var envelope quizEnvelope
	if err := json.Unmarshal(content.Data, &envelope); err == nil && envelope.Version >= 1 {
		if envelope.Version > quizEnvelopeVersion {
			s.logger.Error().
				Uint("content_id", content.ID).
				Int("stored_version", envelope.Version).
				Int("supported_version", quizEnvelopeVersion).
				Msg("quiz blob version is newer than this service supports, serving fallback quiz")
			return models.Quiz{}, false
		}
		return envelope.Quiz, true
	}

	// Legacy rows stored the quiz object directly, without the envelope.
	var legacy models.Quiz
	if err := json.Unmarshal(content.Data, &legacy); err == nil && legacy.Title != "" {
		s.logger.Warn().
			Uint("content_id", content.ID).
			Msg("migrating legacy quiz blob to versioned envelope on read")
		return legacy, true
	}

	s.logger.Error().
		Uint("content_id", content.ID).
		Msg("quiz blob is unreadable, serving fallback quiz")
	return models.Quiz{}, false
}

// fallbackQuiz is the safe default served when the stored blob is unusable.
func (s *quizService) fallbackQuiz(ctx context.Context, content models.CourseContent) models.Quiz {
	if s.activity != nil {
		id := content.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    0,
			ActorRole:  "system",
			Action:     "quiz.fallback_served",
			EntityType: "content",
			EntityID:   &id,
		})
	}

	return models.Quiz{
		ID:               content.ID,
		ContentID:        content.ID,
		Title:            content.Title,
		TimeLimitMinutes: fallbackTimeLimitMinutes,
		PassingScore:     fallbackPassingScore,
		Questions:        []models.Question{},
	}
}

func (s *quizService) validateEnvelope(raw []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	if err := s.schema.Validate(decoded); err != nil {
		s.logger.Error().Err(err).Msg("quiz envelope failed schema validation")
		return ErrQuizInvalid
	}
	return nil
}

// buildQuestions maps the authoring payload onto the model, assigning stable
// ids to questions and answers that arrive without one.
func buildQuestions(inputs []dto.QuestionInput) []models.Question {
	nextQuestionID := uint(0)
	for _, input := range inputs {
		if input.ID > nextQuestionID {
			nextQuestionID = input.ID
		}
	}

	nextAnswerID := uint(0)
	for _, input := range inputs {
		for _, answer := range input.Answers {
			if answer.ID > nextAnswerID {
				nextAnswerID = answer.ID
			}
		}
	}

	questions := make([]models.Question, 0, len(inputs))
	for _, input := range inputs {
		questionID := input.ID
		if questionID == 0 {
			nextQuestionID++
			questionID = nextQuestionID
		}

		answers := make([]models.Answer, 0, len(input.Answers))
		for _, answerInput := range input.Answers {
			answerID := answerInput.ID
			if answerID == 0 {
				nextAnswerID++
				answerID = nextAnswerID
			}
			answers = append(answers, models.Answer{
				ID:        answerID,
				Text:      answerInput.Text,
				IsCorrect: answerInput.IsCorrect,
			})
		}

		questions = append(questions, models.Question{
			ID:      questionID,
			Text:    input.Text,
			Type:    input.Type,
			Points:  input.Points,
			Answers: answers,
		})
	}

	return questions
}
