package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
	"github.com/campusloop/assess-api/internal/repository"
)

// ErrAssignmentNotFound indicates the assignment could not be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrInvalidDueDate indicates the due date could not be parsed.
var ErrInvalidDueDate = errors.New("invalid due date")

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	CourseID *uint
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentService manages assignments and their grading rubrics.
type AssignmentService interface {
	List(ctx context.Context, filter AssignmentFilter) ([]dto.AssignmentResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor ActivityActor) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor ActivityActor) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo repository.AssignmentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) List(ctx context.Context, filter AssignmentFilter) ([]dto.AssignmentResponse, int64, error) {
	assignments, total, err := s.repo.List(ctx, repository.AssignmentFilter{
		CourseID: filter.CourseID,
		Search:   filter.Search,
		Sort:     filter.Sort,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewAssignmentResponseSlice(assignments), total, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor ActivityActor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	criteria := make([]models.Criteria, 0, len(payload.Criteria))
	for _, input := range payload.Criteria {
		criteria = append(criteria, models.Criteria{
			Description: input.Description,
			MaxScore:    input.MaxScore,
		})
	}

	assignment := models.Assignment{
		CourseID:             payload.CourseID,
		Title:                payload.Title,
		Description:          s.sanitizer.Sanitize(payload.Description),
		DueDate:              dueDate,
		MaxScore:             payload.MaxScore,
		RequiresFileUpload:   payload.RequiresFileUpload,
		AllowedExtensions:    payload.AllowedExtensions,
		MaxFileSizeMB:        payload.MaxFileSizeMB,
		AllowLateSubmissions: payload.AllowLateSubmissions,
		LatePenaltyPerDay:    payload.LatePenaltyPerDay,
		Criteria:             criteria,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordActivity(ctx, actor, "assignment.created", assignment.ID, map[string]interface{}{
		"course_id": assignment.CourseID,
		"title":     assignment.Title,
	})

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, actor ActivityActor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.DueDate != nil {
		dueDate, err := parseDueDate(*payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueDate = dueDate
	}
	if payload.MaxScore != nil {
		assignment.MaxScore = *payload.MaxScore
	}
	if payload.RequiresFileUpload != nil {
		assignment.RequiresFileUpload = *payload.RequiresFileUpload
	}
	if payload.AllowedExtensions != nil {
		assignment.AllowedExtensions = payload.AllowedExtensions
	}
	if payload.MaxFileSizeMB != nil {
		assignment.MaxFileSizeMB = *payload.MaxFileSizeMB
	}
	if payload.AllowLateSubmissions != nil {
		assignment.AllowLateSubmissions = *payload.AllowLateSubmissions
	}
	if payload.LatePenaltyPerDay != nil {
		assignment.LatePenaltyPerDay = payload.LatePenaltyPerDay
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Criteria != nil {
		criteria := make([]models.Criteria, 0, len(*payload.Criteria))
		for _, input := range *payload.Criteria {
			criteria = append(criteria, models.Criteria{
				Description: input.Description,
				MaxScore:    input.MaxScore,
			})
		}
		if err := s.repo.ReplaceCriteria(ctx, assignment.ID, criteria); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	updated, err := s.repo.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordActivity(ctx, actor, "assignment.updated", assignment.ID, map[string]interface{}{
		"course_id": assignment.CourseID,
	})

	return dto.NewAssignmentResponse(updated), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "assignment.deleted", id, nil)
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")

	return nil
}

func (s *assignmentService) recordActivity(ctx context.Context, actor ActivityActor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := entityID
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "assignment",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func parseDueDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}
