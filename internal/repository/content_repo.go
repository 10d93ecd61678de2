package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

// ContentRepository exposes the course content rows that quiz blobs live on.
type ContentRepository interface {
	GetByID(ctx context.Context, id uint) (models.CourseContent, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseContent, error)
	Create(ctx context.Context, content *models.CourseContent) error
	UpdateData(ctx context.Context, id uint, data datatypes.JSON) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository constructs the content repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) GetByID(ctx context.Context, id uint) (models.CourseContent, error) {
	var content models.CourseContent
	if err := r.db.WithContext(ctx).First(&content, id).Error; err != nil {
		return models.CourseContent{}, err
	}

	return content, nil
}

func (r *contentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseContent, error) {
	var contents []models.CourseContent
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&contents).Error; err != nil {
		return nil, err
	}

	return contents, nil
}

func (r *contentRepository) Create(ctx context.Context, content *models.CourseContent) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepository) UpdateData(ctx context.Context, id uint, data datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&models.CourseContent{}).
		Where("id = ?", id).
		Update("data", data)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
