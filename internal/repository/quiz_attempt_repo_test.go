package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

func TestQuizAttemptRepositoryUpsertCreatesThenOverwrites(t *testing.T) {
	db := setupGradingTestDB(t, &models.QuizAttempt{}, &models.QuestionResponse{})
	repo := NewQuizAttemptRepository(db)

	start := time.Now().Add(-10 * time.Minute)
	end := time.Now()

	first := models.QuizAttempt{
		QuizID:    5,
		UserID:    9,
		StartTime: start,
		EndTime:   &end,
		Score:     40,
		IsPassed:  false,
		Responses: []models.QuestionResponse{
			{QuestionID: 1, SelectedAnswerIDs: []uint{10}, IsCorrect: false, PointsEarned: 0},
			{QuestionID: 2, TextResponse: "draft", IsCorrect: true, PointsEarned: 4},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), &first))
	require.NotZero(t, first.ID)

	retakeEnd := end.Add(time.Hour)
	retake := models.QuizAttempt{
		QuizID:    5,
		UserID:    9,
		StartTime: end,
		EndTime:   &retakeEnd,
		Score:     90,
		IsPassed:  true,
		Responses: []models.QuestionResponse{
			{QuestionID: 1, SelectedAnswerIDs: []uint{11}, IsCorrect: true, PointsEarned: 6},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), &retake))
	require.Equal(t, first.ID, retake.ID, "retake should reuse the existing attempt row")

	stored, err := repo.GetByQuizAndUser(context.Background(), 5, 9)
	require.NoError(t, err)
	require.Equal(t, 90, stored.Score)
	require.True(t, stored.IsPassed)
	require.Len(t, stored.Responses, 1, "old responses should be dropped with the replaced attempt")
	require.Equal(t, uint(1), stored.Responses[0].QuestionID)

	var count int64
	require.NoError(t, db.Model(&models.QuizAttempt{}).Where("quiz_id = ? AND user_id = ?", 5, 9).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestQuizAttemptRepositoryGetMissing(t *testing.T) {
	db := setupGradingTestDB(t, &models.QuizAttempt{}, &models.QuestionResponse{})
	repo := NewQuizAttemptRepository(db)

	_, err := repo.GetByQuizAndUser(context.Background(), 1, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuizAttemptRepositoryKeepsAttemptsPerUserDistinct(t *testing.T) {
	db := setupGradingTestDB(t, &models.QuizAttempt{}, &models.QuestionResponse{})
	repo := NewQuizAttemptRepository(db)

	end := time.Now()
	for _, userID := range []uint{1, 2} {
		attempt := models.QuizAttempt{QuizID: 3, UserID: userID, StartTime: end.Add(-time.Minute), EndTime: &end, Score: 70}
		require.NoError(t, repo.Upsert(context.Background(), &attempt))
	}

	attempts, err := repo.ListByQuiz(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
}
