package models

import (
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Assignment defines a gradeable task within a course, including its file
// policy, late policy and the rubric criteria used to score submissions.
type Assignment struct {
	ID                   uint         `gorm:"primaryKey" json:"id"`
	CourseID             uint         `gorm:"index;not null" json:"course_id"`
	Title                string       `gorm:"size:255;not null" json:"title"`
	Description          string       `gorm:"type:text" json:"description"`
	DueDate              time.Time    `gorm:"not null" json:"due_date"`
	MaxScore             int          `gorm:"not null" json:"max_score"`
	RequiresFileUpload   bool         `json:"requires_file_upload"`
	AllowedExtensionsRaw string       `gorm:"column:allowed_extensions;type:text" json:"-"`
	MaxFileSizeMB        int          `json:"max_file_size_mb"`
	AllowLateSubmissions bool         `json:"allow_late_submissions"`
	LatePenaltyPerDay    *int         `json:"late_penalty_per_day"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
	Criteria             []Criteria   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
	Submissions          []Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AllowedExtensions    []string     `gorm:"-" json:"allowed_extensions"`
}

// Criteria is one weighted rubric line item owned by an assignment.
type Criteria struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	AssignmentID uint   `gorm:"index;not null" json:"assignment_id"`
	Description  string `gorm:"size:512;not null" json:"description"`
	MaxScore     int    `gorm:"not null" json:"max_score"`
}

// BeforeSave normalises the allowed-extension list before persisting.
func (a *Assignment) BeforeSave(tx *gorm.DB) error {
	a.AllowedExtensionsRaw = encodeExtensions(a.AllowedExtensions)
	return nil
}

// AfterFind hydrates the allowed-extension list after retrieval.
func (a *Assignment) AfterFind(tx *gorm.DB) error {
	a.AllowedExtensions = decodeExtensions(a.AllowedExtensionsRaw)
	return nil
}

// IsPastDue reports whether the deadline has already passed at the reference time.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// CriteriaMaxTotal sums the maximum score of every configured criterion. It is
// the denominator of the percentage score and may legitimately be zero.
func (a Assignment) CriteriaMaxTotal() int {
	total := 0
	for _, criterion := range a.Criteria {
		total += criterion.MaxScore
	}
	return total
}

// AllowsExtension reports whether the file policy accepts the given extension.
// An empty policy accepts everything.
func (a Assignment) AllowsExtension(ext string) bool {
	if len(a.AllowedExtensions) == 0 {
		return true
	}
	normalized := normalizeExtension(ext)
	for _, allowed := range a.AllowedExtensions {
		if normalizeExtension(allowed) == normalized {
			return true
		}
	}
	return false
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func encodeExtensions(exts []string) string {
	cleaned := make([]string, 0, len(exts))
	for _, ext := range exts {
		normalized := normalizeExtension(ext)
		if normalized == "" {
			continue
		}
		cleaned = append(cleaned, normalized)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeExtensions(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	exts := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			exts = append(exts, trimmed)
		}
	}
	return exts
}

// Submission review lifecycle states.
const (
	SubmissionStatusDraft            = "draft"
	SubmissionStatusSubmitted        = "submitted"
	SubmissionStatusUnderReview      = "under_review"
	SubmissionStatusReviewed         = "reviewed"
	SubmissionStatusRequiresRevision = "requires_revision"
)

// Submission is a learner's current answer to an assignment. One row is kept
// per (assignment, user) pair; resubmissions update it in place.
type Submission struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	AssignmentID   uint             `gorm:"not null;uniqueIndex:idx_submissions_assignment_user" json:"assignment_id"`
	UserID         uint             `gorm:"not null;uniqueIndex:idx_submissions_assignment_user" json:"user_id"`
	TextAnswer     string           `gorm:"type:text" json:"text_answer"`
	SubmissionDate time.Time        `gorm:"index" json:"submission_date"`
	Status         string           `gorm:"size:32;not null" json:"status"`
	Score          *int             `json:"score"`
	TeacherComment string           `gorm:"type:text" json:"teacher_comment"`
	ReviewDate     *time.Time       `json:"review_date"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Assignment     Assignment       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Files          []SubmissionFile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"files"`
	CriteriaScores []CriteriaScore  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria_scores"`
}

// SubmissionFile records one uploaded attachment on a submission. FilePath is
// the durable handle returned by the file storage collaborator.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	FilePath     string    `gorm:"size:512;not null" json:"file_path"`
	FileSize     int64     `json:"file_size"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	UploadDate   time.Time `json:"upload_date"`
}

// CriteriaScore is one reviewer judgment against a single criterion. The full
// set for a submission is replaced wholesale on each review save.
type CriteriaScore struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubmissionID uint   `gorm:"index;not null" json:"submission_id"`
	CriteriaID   uint   `gorm:"not null" json:"criteria_id"`
	Score        int    `gorm:"not null" json:"score"`
	Comment      string `gorm:"size:512" json:"comment"`
}

// IsReviewable reports whether a reviewer may still act on the submission.
func (s Submission) IsReviewable() bool {
	switch s.Status {
	case SubmissionStatusSubmitted, SubmissionStatusUnderReview, SubmissionStatusRequiresRevision:
		return true
	default:
		return false
	}
}

// IsLate reports whether the submission arrived after the assignment deadline.
// The assignment association must be loaded; without it the submission is
// treated as on time.
func (s Submission) IsLate() bool {
	if s.Assignment.ID == 0 {
		return false
	}
	return s.SubmissionDate.After(s.Assignment.DueDate)
}

// DaysLate returns the number of whole days between the deadline and the
// submission date, floored. A same-day late submission yields zero.
func (s Submission) DaysLate() int {
	if !s.IsLate() {
		return 0
	}
	return int(s.SubmissionDate.Sub(s.Assignment.DueDate).Hours() / 24)
}

// PenaltyPercent computes the late deduction, capped at 100. Assignments
// without a configured per-day penalty never deduct.
func (s Submission) PenaltyPercent() int {
	if !s.IsLate() || s.Assignment.LatePenaltyPerDay == nil {
		return 0
	}
	return min(100, s.DaysLate()*(*s.Assignment.LatePenaltyPerDay))
}

// FinalScore aggregates the recorded criteria scores into a 0..100 result:
// the raw sum is normalised against the criteria maximum (round half up),
// then the late penalty is subtracted and the result clamped. An assignment
// with no configured criteria always scores zero.
func (s Submission) FinalScore() int {
	maxTotal := s.Assignment.CriteriaMaxTotal()
	if maxTotal <= 0 {
		return 0
	}

	base := 0
	for _, cs := range s.CriteriaScores {
		base += cs.Score
	}

	percentage := int(math.Round(float64(base) / float64(maxTotal) * 100))
	if s.IsLate() {
		percentage -= s.PenaltyPercent()
	}

	return max(0, min(100, percentage))
}
