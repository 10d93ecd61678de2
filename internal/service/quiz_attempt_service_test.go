package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
)

type memoryAttemptRepo struct {
	attempts map[uint]models.QuizAttempt
	nextID   uint
}

func newMemoryAttemptRepo() *memoryAttemptRepo {
	return &memoryAttemptRepo{
		attempts: make(map[uint]models.QuizAttempt),
		nextID:   1,
	}
}

func (m *memoryAttemptRepo) GetByID(ctx context.Context, id uint) (models.QuizAttempt, error) {
	attempt, ok := m.attempts[id]
	if !ok {
		return models.QuizAttempt{}, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (m *memoryAttemptRepo) GetByQuizAndUser(ctx context.Context, quizID, userID uint) (models.QuizAttempt, error) {
	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID && attempt.UserID == userID {
			return attempt, nil
		}
	}
	return models.QuizAttempt{}, gorm.ErrRecordNotFound
}

func (m *memoryAttemptRepo) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	results := make([]models.QuizAttempt, 0, len(m.attempts))
	for _, attempt := range m.attempts {
		if attempt.QuizID == quizID {
			results = append(results, attempt)
		}
	}
	return results, nil
}

func (m *memoryAttemptRepo) Upsert(ctx context.Context, attempt *models.QuizAttempt) error {
	existing, err := m.GetByQuizAndUser(ctx, attempt.QuizID, attempt.UserID)
	if err == nil {
		attempt.ID = existing.ID
	} else {
		attempt.ID = m.nextID
		m.nextID++
	}
	m.attempts[attempt.ID] = *attempt
	return nil
}

func attemptFixture(t *testing.T) (*memoryAttemptRepo, QuizAttemptService, uint) {
	t.Helper()
	contents := newMemoryContentRepo()
	attempts := newMemoryAttemptRepo()
	recorder := &recorderStub{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	content := models.CourseContent{CourseID: 1, Title: "Final Quiz", Kind: models.ContentKindQuiz}
	require.NoError(t, contents.Create(context.Background(), &content))

	quizzes := NewQuizService(contents, validate, recorder, testLogger())
	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := quizzes.Save(context.Background(), content.ID, dto.QuizSaveRequest{
		Title:            "Final",
		TimeLimitMinutes: 30,
		PassingScore:     70,
		Questions: []dto.QuestionInput{
			{
				ID:     1,
				Text:   "Select all prime numbers",
				Type:   models.QuestionMultipleChoice,
				Points: 6,
				Answers: []dto.AnswerInput{
					{ID: 10, Text: "2", IsCorrect: true},
					{ID: 11, Text: "3", IsCorrect: true},
					{ID: 12, Text: "4"},
				},
			},
			{
				ID:     2,
				Text:   "Describe a hash table",
				Type:   models.QuestionShortAnswer,
				Points: 4,
			},
		},
	}, actor)
	require.NoError(t, err)

	svc := NewQuizAttemptService(attempts, quizzes, validate, recorder, testLogger())
	return attempts, svc, content.ID
}

func TestAttemptCompleteGradesAndPasses(t *testing.T) {
	_, svc, contentID := attemptFixture(t)

	actor := ActivityActor{ID: 8, Role: "student"}
	result, err := svc.Complete(context.Background(), contentID, actor, dto.AttemptCompleteRequest{
		StartTime: time.Now().Add(-5 * time.Minute),
		Responses: []dto.QuestionResponseInput{
			{QuestionID: 1, SelectedAnswerIDs: []uint{10, 11}},
			{QuestionID: 2, TextResponse: "key-value structure with buckets"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 100, result.Score)
	require.True(t, result.IsPassed)
	require.Len(t, result.Responses, 2)
	require.True(t, result.Responses[0].IsCorrect)
	require.Equal(t, 6, result.Responses[0].PointsEarned)
	require.NotNil(t, result.EndTime)
}

func TestAttemptCompleteSupersetEarnsNothing(t *testing.T) {
	_, svc, contentID := attemptFixture(t)

	actor := ActivityActor{ID: 8, Role: "student"}
	result, err := svc.Complete(context.Background(), contentID, actor, dto.AttemptCompleteRequest{
		Responses: []dto.QuestionResponseInput{
			{QuestionID: 1, SelectedAnswerIDs: []uint{10, 11, 12}},
			{QuestionID: 2, TextResponse: "   "},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.Score)
	require.False(t, result.IsPassed)
	require.False(t, result.Responses[0].IsCorrect)
	require.False(t, result.Responses[1].IsCorrect, "blank text answers earn nothing")
}

func TestAttemptCompleteReconcilesByTextAndDropsUnmatched(t *testing.T) {
	_, svc, contentID := attemptFixture(t)

	actor := ActivityActor{ID: 8, Role: "student"}
	result, err := svc.Complete(context.Background(), contentID, actor, dto.AttemptCompleteRequest{
		Responses: []dto.QuestionResponseInput{
			{QuestionID: 0, QuestionText: "  Select all prime numbers ", SelectedAnswerIDs: []uint{10, 11}},
			{QuestionID: 0, QuestionText: "A question that does not exist", TextResponse: "whatever"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Responses, 1, "responses matching no question are dropped")
	require.Equal(t, uint(1), result.Responses[0].QuestionID)
	require.Equal(t, 60, result.Score)
}

func TestAttemptRetakeOverwrites(t *testing.T) {
	attempts, svc, contentID := attemptFixture(t)

	actor := ActivityActor{ID: 8, Role: "student"}
	first, err := svc.Complete(context.Background(), contentID, actor, dto.AttemptCompleteRequest{
		Responses: []dto.QuestionResponseInput{
			{QuestionID: 1, SelectedAnswerIDs: []uint{12}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 0, first.Score)

	second, err := svc.Complete(context.Background(), contentID, actor, dto.AttemptCompleteRequest{
		Responses: []dto.QuestionResponseInput{
			{QuestionID: 1, SelectedAnswerIDs: []uint{10, 11}},
			{QuestionID: 2, TextResponse: "buckets"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "retake overwrites the retained attempt")
	require.Equal(t, 100, second.Score)
	require.Len(t, attempts.attempts, 1)
}

func TestAttemptGetForUserMissing(t *testing.T) {
	_, svc, contentID := attemptFixture(t)

	_, err := svc.GetForUser(context.Background(), contentID, 404)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestAttemptScoreRoundsHalfUp(t *testing.T) {
	require.Equal(t, 63, attemptScore(25, 40))
	require.Equal(t, 0, attemptScore(10, 0))
	require.Equal(t, 50, attemptScore(1, 2))
}
