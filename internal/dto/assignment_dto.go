package dto

import (
	"time"

	"github.com/campusloop/assess-api/internal/models"
)

// CriteriaInput is one rubric line item supplied when authoring an assignment.
type CriteriaInput struct {
	Description string `json:"description" validate:"required,min=1,max=512"`
	MaxScore    int    `json:"max_score" validate:"required,gt=0"`
}

// AssignmentCreateRequest is the authoring payload for a new assignment.
type AssignmentCreateRequest struct {
	CourseID             uint            `json:"course_id" validate:"required,gt=0"`
	Title                string          `json:"title" validate:"required,min=1,max=255"`
	Description          string          `json:"description"`
	DueDate              string          `json:"due_date" validate:"required"`
	MaxScore             int             `json:"max_score" validate:"required,gt=0"`
	RequiresFileUpload   bool            `json:"requires_file_upload"`
	AllowedExtensions    []string        `json:"allowed_extensions"`
	MaxFileSizeMB        int             `json:"max_file_size_mb" validate:"omitempty,gt=0"`
	AllowLateSubmissions bool            `json:"allow_late_submissions"`
	LatePenaltyPerDay    *int            `json:"late_penalty_per_day" validate:"omitempty,gte=0,lte=100"`
	Criteria             []CriteriaInput `json:"criteria" validate:"dive"`
}

// AssignmentUpdateRequest edits a persisted assignment. The criteria list, when
// present, replaces the configured rubric wholesale.
type AssignmentUpdateRequest struct {
	Title                *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description          *string          `json:"description"`
	DueDate              *string          `json:"due_date"`
	MaxScore             *int             `json:"max_score" validate:"omitempty,gt=0"`
	RequiresFileUpload   *bool            `json:"requires_file_upload"`
	AllowedExtensions    []string         `json:"allowed_extensions"`
	MaxFileSizeMB        *int             `json:"max_file_size_mb" validate:"omitempty,gt=0"`
	AllowLateSubmissions *bool            `json:"allow_late_submissions"`
	LatePenaltyPerDay    *int             `json:"late_penalty_per_day" validate:"omitempty,gte=0,lte=100"`
	Criteria             *[]CriteriaInput `json:"criteria" validate:"omitempty,dive"`
}

// CriteriaResponse serializes one rubric line item.
type CriteriaResponse struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
	MaxScore    int    `json:"max_score"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID                   uint               `json:"id"`
	CourseID             uint               `json:"course_id"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	DueDate              time.Time          `json:"due_date"`
	MaxScore             int                `json:"max_score"`
	RequiresFileUpload   bool               `json:"requires_file_upload"`
	AllowedExtensions    []string           `json:"allowed_extensions"`
	MaxFileSizeMB        int                `json:"max_file_size_mb"`
	AllowLateSubmissions bool               `json:"allow_late_submissions"`
	LatePenaltyPerDay    *int               `json:"late_penalty_per_day"`
	Criteria             []CriteriaResponse `json:"criteria"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewAssignmentResponse maps an assignment model to its API shape.
func NewAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	criteria := make([]CriteriaResponse, 0, len(assignment.Criteria))
	for _, criterion := range assignment.Criteria {
		criteria = append(criteria, CriteriaResponse{
			ID:          criterion.ID,
			Description: criterion.Description,
			MaxScore:    criterion.MaxScore,
		})
	}

	extensions := assignment.AllowedExtensions
	if extensions == nil {
		extensions = []string{}
	}

	return AssignmentResponse{
		ID:                   assignment.ID,
		CourseID:             assignment.CourseID,
		Title:                assignment.Title,
		Description:          assignment.Description,
		DueDate:              assignment.DueDate,
		MaxScore:             assignment.MaxScore,
		RequiresFileUpload:   assignment.RequiresFileUpload,
		AllowedExtensions:    extensions,
		MaxFileSizeMB:        assignment.MaxFileSizeMB,
		AllowLateSubmissions: assignment.AllowLateSubmissions,
		LatePenaltyPerDay:    assignment.LatePenaltyPerDay,
		Criteria:             criteria,
		CreatedAt:            assignment.CreatedAt,
		UpdatedAt:            assignment.UpdatedAt,
	}
}

// NewAssignmentResponseSlice maps a list of assignments.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
