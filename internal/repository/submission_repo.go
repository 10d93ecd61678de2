package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	UserID       *uint
	Status       *string
	Statuses     []string
}

// SubmissionRepository defines data operations for submissions, their
// attachments and recorded criteria scores.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndUser(ctx context.Context, assignmentID, userID uint) (models.Submission, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	ReplaceFiles(ctx context.Context, submissionID uint, files []models.SubmissionFile) error
	ReplaceCriteriaScores(ctx context.Context, submissionID uint, scores []models.CriteriaScore) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Assignment.Criteria").
		Preload("Files").
		Preload("CriteriaScores")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var submissions []models.Submission
	if err := query.Order("submission_date DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndUser(ctx context.Context, assignmentID, userID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("user_id = ?", userID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("user_id = ?", userID).
		Order("submission_date DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).
		Omit("Assignment", "Files", "CriteriaScores").
		Save(submission).Error
}

// ReplaceFiles swaps the attachment set wholesale, matching how resubmission
// replaces the previously stored work.
func (r *submissionRepository) ReplaceFiles(ctx context.Context, submissionID uint, files []models.SubmissionFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).Delete(&models.SubmissionFile{}).Error; err != nil {
			return err
		}

		if len(files) == 0 {
			return nil
		}

		for i := range files {
			files[i].ID = 0
			files[i].SubmissionID = submissionID
		}
		return tx.Create(&files).Error
	})
}

// ReplaceCriteriaScores swaps every recorded rubric judgment for the
// submission in one transaction.
func (r *submissionRepository) ReplaceCriteriaScores(ctx context.Context, submissionID uint, scores []models.CriteriaScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).Delete(&models.CriteriaScore{}).Error; err != nil {
			return err
		}

		if len(scores) == 0 {
			return nil
		}

		for i := range scores {
			scores[i].ID = 0
			scores[i].SubmissionID = submissionID
		}
		return tx.Create(&scores).Error
	})
}
