package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
)

type memoryContentRepo struct {
	contents map[uint]models.CourseContent
	nextID   uint
}

func newMemoryContentRepo() *memoryContentRepo {
	return &memoryContentRepo{
		contents: make(map[uint]models.CourseContent),
		nextID:   1,
	}
}

func (m *memoryContentRepo) GetByID(ctx context.Context, id uint) (models.CourseContent, error) {
	content, ok := m.contents[id]
	if !ok {
		return models.CourseContent{}, gorm.ErrRecordNotFound
	}
	return content, nil
}

func (m *memoryContentRepo) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseContent, error) {
	results := make([]models.CourseContent, 0, len(m.contents))
	for _, content := range m.contents {
		if content.CourseID == courseID {
			results = append(results, content)
		}
	}
	return results, nil
}

func (m *memoryContentRepo) Create(ctx context.Context, content *models.CourseContent) error {
	content.ID = m.nextID
	m.contents[m.nextID] = *content
	m.nextID++
	return nil
}

func (m *memoryContentRepo) UpdateData(ctx context.Context, id uint, data datatypes.JSON) error {
	content, ok := m.contents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	content.Data = data
	m.contents[id] = content
	return nil
}

func quizFixture(t *testing.T) (*memoryContentRepo, QuizService, *recorderStub, uint) {
	t.Helper()
	contents := newMemoryContentRepo()
	recorder := &recorderStub{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	content := models.CourseContent{CourseID: 1, Title: "Midterm Quiz", Kind: models.ContentKindQuiz}
	require.NoError(t, contents.Create(context.Background(), &content))

	svc := NewQuizService(contents, validate, recorder, testLogger())
	return contents, svc, recorder, content.ID
}

func sampleQuizPayload() dto.QuizSaveRequest {
	return dto.QuizSaveRequest{
		Title:            "Midterm",
		TimeLimitMinutes: 20,
		PassingScore:     60,
		Questions: []dto.QuestionInput{
			{
				Text:   "2 + 2 = ?",
				Type:   models.QuestionSingleChoice,
				Points: 5,
				Answers: []dto.AnswerInput{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
				},
			},
			{
				Text:   "Explain recursion",
				Type:   models.QuestionEssay,
				Points: 10,
			},
		},
	}
}

func TestQuizSaveAssignsIDsAndRoundTrips(t *testing.T) {
	_, svc, _, contentID := quizFixture(t)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	saved, err := svc.Save(context.Background(), contentID, sampleQuizPayload(), actor)
	require.NoError(t, err)
	require.Len(t, saved.Questions, 2)
	require.NotZero(t, saved.Questions[0].ID)
	require.NotZero(t, saved.Questions[1].ID)
	require.NotEqual(t, saved.Questions[0].ID, saved.Questions[1].ID)
	require.NotZero(t, saved.Questions[0].Answers[0].ID)
	require.NotZero(t, saved.Questions[0].Answers[1].ID)

	loaded, err := svc.GetForGrading(context.Background(), contentID)
	require.NoError(t, err)
	require.Equal(t, "Midterm", loaded.Title)
	require.Equal(t, 20, loaded.TimeLimitMinutes)
	require.Equal(t, 60, loaded.PassingScore)
	require.Len(t, loaded.Questions, 2)
	require.Equal(t, 15, loaded.TotalPoints())
}

func TestQuizSavePreservesExplicitIDs(t *testing.T) {
	_, svc, _, contentID := quizFixture(t)

	payload := sampleQuizPayload()
	payload.Questions[0].ID = 40
	payload.Questions[0].Answers[1].ID = 400

	actor := ActivityActor{ID: 1, Role: "teacher"}
	saved, err := svc.Save(context.Background(), contentID, payload, actor)
	require.NoError(t, err)
	require.Equal(t, uint(40), saved.Questions[0].ID)
	require.Equal(t, uint(400), saved.Questions[0].Answers[1].ID)
	require.NotEqual(t, uint(40), saved.Questions[1].ID)
}

func TestQuizGetRejectsNonQuizContent(t *testing.T) {
	contents, svc, _, _ := quizFixture(t)

	text := models.CourseContent{CourseID: 1, Title: "Reading", Kind: models.ContentKindText}
	require.NoError(t, contents.Create(context.Background(), &text))

	_, err := svc.Get(context.Background(), text.ID)
	require.ErrorIs(t, err, ErrNotQuizContent)

	_, err = svc.Get(context.Background(), 9999)
	require.ErrorIs(t, err, ErrContentNotFound)
}

func TestQuizFallbackOnMissingBlob(t *testing.T) {
	_, svc, recorder, contentID := quizFixture(t)

	quiz, err := svc.GetForGrading(context.Background(), contentID)
	require.NoError(t, err)
	require.Equal(t, fallbackTimeLimitMinutes, quiz.TimeLimitMinutes)
	require.Equal(t, fallbackPassingScore, quiz.PassingScore)
	require.Empty(t, quiz.Questions)
	require.Equal(t, "Midterm Quiz", quiz.Title, "fallback carries the content title")

	require.Len(t, recorder.entries, 1)
	require.Equal(t, "quiz.fallback_served", recorder.entries[0].Action)
}

func TestQuizFallbackOnCorruptBlob(t *testing.T) {
	contents, svc, _, contentID := quizFixture(t)
	require.NoError(t, contents.UpdateData(context.Background(), contentID, datatypes.JSON(`{"not":"a quiz"`)))

	quiz, err := svc.GetForGrading(context.Background(), contentID)
	require.NoError(t, err)
	require.Equal(t, fallbackPassingScore, quiz.PassingScore)
}

func TestQuizLegacyBlobMigratesOnRead(t *testing.T) {
	contents, svc, _, contentID := quizFixture(t)

	legacy := models.Quiz{
		Title:            "Legacy Quiz",
		TimeLimitMinutes: 15,
		PassingScore:     50,
		Questions: []models.Question{
			{ID: 1, Text: "True or false: water is wet", Type: models.QuestionTrueFalse, Points: 1, Answers: []models.Answer{
				{ID: 1, Text: "True", IsCorrect: true},
				{ID: 2, Text: "False"},
			}},
		},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, contents.UpdateData(context.Background(), contentID, datatypes.JSON(raw)))

	quiz, err := svc.GetForGrading(context.Background(), contentID)
	require.NoError(t, err)
	require.Equal(t, "Legacy Quiz", quiz.Title)
	require.Equal(t, 15, quiz.TimeLimitMinutes)
	require.Len(t, quiz.Questions, 1)
}

func TestQuizGetHidesAnswersUnlessRevealed(t *testing.T) {
	_, svc, _, contentID := quizFixture(t)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	payload := sampleQuizPayload()
	_, err := svc.Save(context.Background(), contentID, payload, actor)
	require.NoError(t, err)

	hidden, err := svc.Get(context.Background(), contentID)
	require.NoError(t, err)
	require.Nil(t, hidden.Questions[0].Answers[1].IsCorrect)

	payload.ShowCorrectAnswers = true
	_, err = svc.Save(context.Background(), contentID, payload, actor)
	require.NoError(t, err)

	revealed, err := svc.Get(context.Background(), contentID)
	require.NoError(t, err)
	require.NotNil(t, revealed.Questions[0].Answers[1].IsCorrect)
	require.True(t, *revealed.Questions[0].Answers[1].IsCorrect)
}
