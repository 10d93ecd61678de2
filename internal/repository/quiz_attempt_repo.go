package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

// QuizAttemptRepository persists graded quiz attempts. One attempt row is
// retained per (quiz, user) pair.
type QuizAttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.QuizAttempt, error)
	GetByQuizAndUser(ctx context.Context, quizID, userID uint) (models.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error)
	Upsert(ctx context.Context, attempt *models.QuizAttempt) error
}

type quizAttemptRepository struct {
	db *gorm.DB
}

// NewQuizAttemptRepository constructs the attempt repository.
func NewQuizAttemptRepository(db *gorm.DB) QuizAttemptRepository {
	return &quizAttemptRepository{db: db}
}

func (r *quizAttemptRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Preload("Responses")
}

func (r *quizAttemptRepository) GetByID(ctx context.Context, id uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.baseQuery(ctx).First(&attempt, id).Error; err != nil {
		return models.QuizAttempt{}, err
	}

	return attempt, nil
}

func (r *quizAttemptRepository) GetByQuizAndUser(ctx context.Context, quizID, userID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.baseQuery(ctx).
		Where("quiz_id = ?", quizID).
		Where("user_id = ?", userID).
		First(&attempt).Error; err != nil {
		return models.QuizAttempt{}, err
	}

	return attempt, nil
}

func (r *quizAttemptRepository) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	if err := r.baseQuery(ctx).
		Where("quiz_id = ?", quizID).
		Order("end_time DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

// Upsert stores the attempt, overwriting any previous attempt by the same user
// on the same quiz. Old responses are dropped with the replaced row.
func (r *quizAttemptRepository) Upsert(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.QuizAttempt
		err := tx.
			Where("quiz_id = ?", attempt.QuizID).
			Where("user_id = ?", attempt.UserID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("attempt_id = ?", existing.ID).Delete(&models.QuestionResponse{}).Error; err != nil {
				return err
			}
			attempt.ID = existing.ID
			attempt.CreatedAt = existing.CreatedAt
			for i := range attempt.Responses {
				attempt.Responses[i].ID = 0
				attempt.Responses[i].AttemptID = existing.ID
			}
			return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(attempt).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			attempt.ID = 0
			return tx.Create(attempt).Error
		default:
			return err
		}
	})
}
