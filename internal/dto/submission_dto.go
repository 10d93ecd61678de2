package dto

import (
	"time"

	"github.com/campusloop/assess-api/internal/models"
)

// SubmissionDraftRequest carries the learner's work when saving a draft or
// submitting. Files arrive alongside as multipart attachments.
type SubmissionDraftRequest struct {
	TextAnswer string `form:"text_answer" json:"text_answer"`
}

// SubmissionFilter narrows reviewer submission listings.
type SubmissionFilter struct {
	Status *string `query:"status" validate:"omitempty,oneof=draft submitted under_review reviewed requires_revision"`
}

// SubmissionFileResponse serializes one uploaded attachment.
type SubmissionFileResponse struct {
	ID          uint      `json:"id"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadDate  time.Time `json:"upload_date"`
}

// CriteriaScoreResponse serializes one recorded rubric judgment.
type CriteriaScoreResponse struct {
	CriteriaID uint   `json:"criteria_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
}

// SubmissionResponse is returned when viewing a submission.
type SubmissionResponse struct {
	ID             uint                     `json:"id"`
	AssignmentID   uint                     `json:"assignment_id"`
	UserID         uint                     `json:"user_id"`
	TextAnswer     string                   `json:"text_answer"`
	SubmissionDate time.Time                `json:"submission_date"`
	Status         string                   `json:"status"`
	Score          *int                     `json:"score"`
	TeacherComment string                   `json:"teacher_comment"`
	ReviewDate     *time.Time               `json:"review_date"`
	IsLate         bool                     `json:"is_late"`
	PenaltyPercent int                      `json:"penalty_percent"`
	Files          []SubmissionFileResponse `json:"files"`
	CriteriaScores []CriteriaScoreResponse  `json:"criteria_scores"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewSubmissionResponse maps a submission model to its API shape.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	files := make([]SubmissionFileResponse, 0, len(submission.Files))
	for _, file := range submission.Files {
		files = append(files, SubmissionFileResponse{
			ID:          file.ID,
			FileName:    file.FileName,
			FilePath:    file.FilePath,
			FileSize:    file.FileSize,
			ContentType: file.ContentType,
			UploadDate:  file.UploadDate,
		})
	}

	scores := make([]CriteriaScoreResponse, 0, len(submission.CriteriaScores))
	for _, score := range submission.CriteriaScores {
		scores = append(scores, CriteriaScoreResponse{
			CriteriaID: score.CriteriaID,
			Score:      score.Score,
			Comment:    score.Comment,
		})
	}

	return SubmissionResponse{
		ID:             submission.ID,
		AssignmentID:   submission.AssignmentID,
		UserID:         submission.UserID,
		TextAnswer:     submission.TextAnswer,
		SubmissionDate: submission.SubmissionDate,
		Status:         submission.Status,
		Score:          submission.Score,
		TeacherComment: submission.TeacherComment,
		ReviewDate:     submission.ReviewDate,
		IsLate:         submission.IsLate(),
		PenaltyPercent: submission.PenaltyPercent(),
		Files:          files,
		CriteriaScores: scores,
		CreatedAt:      submission.CreatedAt,
		UpdatedAt:      submission.UpdatedAt,
	}
}

// NewSubmissionResponseSlice maps a list of submissions.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
