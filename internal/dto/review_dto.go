package dto

// CriteriaScoreInput is one rubric judgment supplied by the reviewer. The set
// sent with a review save replaces any previously recorded scores wholesale.
type CriteriaScoreInput struct {
	CriteriaID uint   `json:"criteria_id" validate:"required,gt=0"`
	Score      int    `json:"score" validate:"gte=0"`
	Comment    string `json:"comment" validate:"omitempty,max=512"`
}

// ReviewSaveRequest carries a review-in-progress or a final review.
type ReviewSaveRequest struct {
	CriteriaScores []CriteriaScoreInput `json:"criteria_scores" validate:"dive"`
	TeacherComment string               `json:"teacher_comment"`
}

// BatchGradeRequest applies one score and comment to many submissions of the
// same assignment in a single reviewer action.
type BatchGradeRequest struct {
	SubmissionIDs []uint `json:"submission_ids" validate:"required,min=1,dive,gt=0"`
	Score         int    `json:"score" validate:"gte=0,lte=100"`
	Comment       string `json:"comment" validate:"required,min=1"`
}

// BatchGradeItemResult reports the outcome for one submission in the batch.
type BatchGradeItemResult struct {
	SubmissionID uint   `json:"submission_id"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// BatchGradeResponse summarises a best-effort batch grade.
type BatchGradeResponse struct {
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Items     []BatchGradeItemResult `json:"items"`
}
