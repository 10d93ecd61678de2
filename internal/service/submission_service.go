package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
	"github.com/campusloop/assess-api/internal/observability"
	"github.com/campusloop/assess-api/internal/repository"
)

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrEmptySubmission indicates the learner tried to submit without any work.
var ErrEmptySubmission = errors.New("submission has no text answer and no files")

// ErrPastDeadline indicates the assignment deadline has passed and late
// submissions are not allowed.
var ErrPastDeadline = errors.New("assignment deadline has passed")

// ErrFileRequired indicates the assignment demands an attachment.
var ErrFileRequired = errors.New("assignment requires a file upload")

// ErrFileTooLarge indicates an attachment exceeds the assignment's size limit.
var ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")

// ErrExtensionNotAllowed indicates an attachment's extension is outside the
// assignment's file policy.
var ErrExtensionNotAllowed = errors.New("file extension is not allowed")

// ErrSubmissionLocked indicates the submission is already under review or
// reviewed and the learner may no longer change it.
var ErrSubmissionLocked = errors.New("submission can no longer be modified")

// FileStore persists submission attachments and returns a durable handle used
// to retrieve them later.
type FileStore interface {
	Save(ctx context.Context, key string, fileName string, reader io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}

// SubmissionService orchestrates the learner side of the submission lifecycle.
type SubmissionService interface {
	List(ctx context.Context, filter dto.SubmissionFilter, assignmentID *uint) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	GetForUser(ctx context.Context, assignmentID, userID uint) (dto.SubmissionResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error)
	SaveDraft(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	store       FileStore
	activity    ActivityRecorder
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, store FileStore, activity ActivityRecorder, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		store:       store,
		activity:    activity,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter, assignmentID *uint) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: assignmentID,
		Status:       filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) GetForUser(ctx context.Context, assignmentID, userID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByAssignmentAndUser(ctx, assignmentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListByUser(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// SaveDraft stores work in progress without submitting it for review. Drafts
// bypass the deadline and file policy checks (those apply at submit time) but
// must still carry some work: blank text with no files is rejected.
func (s *submissionService) SaveDraft(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader) (dto.SubmissionResponse, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if strings.TrimSpace(payload.TextAnswer) == "" && len(files) == 0 {
		return dto.SubmissionResponse{}, ErrEmptySubmission
	}

	submission, err := s.upsert(ctx, assignment, actor.ID, payload, files, models.SubmissionStatusDraft)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Submit stores the learner's work and moves it into the review queue. The
// deadline, empty-work and file policy rules are enforced here.
func (s *submissionService) Submit(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader) (dto.SubmissionResponse, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if assignment.IsPastDue(s.now()) && !assignment.AllowLateSubmissions {
		return dto.SubmissionResponse{}, ErrPastDeadline
	}

	if strings.TrimSpace(payload.TextAnswer) == "" && len(files) == 0 {
		return dto.SubmissionResponse{}, ErrEmptySubmission
	}

	if assignment.RequiresFileUpload && len(files) == 0 {
		return dto.SubmissionResponse{}, ErrFileRequired
	}

	submission, err := s.upsert(ctx, assignment, actor.ID, payload, files, models.SubmissionStatusSubmitted)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsReceivedTotal().WithLabelValues(submissionLateLabel(submission)).Inc()

	s.recordActivity(ctx, actor, "submission.submitted", submission.ID, map[string]interface{}{
		"assignment_id": assignment.ID,
		"is_late":       submission.IsLate(),
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Bool("is_late", submission.IsLate()).
		Msg("submission received")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) getAssignment(ctx context.Context, assignmentID uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

// upsert stores the work against the single (assignment, user) row, replacing
// any previous draft or submission in place.
func (s *submissionService) upsert(ctx context.Context, assignment models.Assignment, userID uint, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader, status string) (models.Submission, error) {
	existing, err := s.submissions.GetByAssignmentAndUser(ctx, assignment.ID, userID)
	switch {
	case err == nil:
		if !s.canModify(existing) {
			return models.Submission{}, ErrSubmissionLocked
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = models.Submission{AssignmentID: assignment.ID, UserID: userID}
	default:
		return models.Submission{}, err
	}

	stored, err := s.storeFiles(ctx, assignment, userID, files)
	if err != nil {
		return models.Submission{}, err
	}

	existing.TextAnswer = s.sanitizer.Sanitize(payload.TextAnswer)
	existing.SubmissionDate = s.now()
	existing.Status = status
	existing.Score = nil
	existing.TeacherComment = ""
	existing.ReviewDate = nil

	if existing.ID == 0 {
		if err := s.submissions.Create(ctx, &existing); err != nil {
			return models.Submission{}, err
		}
	} else {
		if err := s.submissions.Update(ctx, &existing); err != nil {
			return models.Submission{}, err
		}
		if err := s.submissions.ReplaceCriteriaScores(ctx, existing.ID, nil); err != nil {
			return models.Submission{}, err
		}
	}

	if len(stored) > 0 {
		if err := s.submissions.ReplaceFiles(ctx, existing.ID, stored); err != nil {
			return models.Submission{}, err
		}
	}

	return s.submissions.GetByID(ctx, existing.ID)
}

// canModify reports whether the learner may overwrite the row. Submitted work
// is locked until a reviewer acts on it, reviewed work is locked for good; a
// review in progress does not block a replacement submission.
func (s *submissionService) canModify(submission models.Submission) bool {
	switch submission.Status {
	case models.SubmissionStatusSubmitted, models.SubmissionStatusReviewed:
		return false
	default:
		return true
	}
}

func (s *submissionService) storeFiles(ctx context.Context, assignment models.Assignment, userID uint, files []*multipart.FileHeader) ([]models.SubmissionFile, error) {
	if len(files) == 0 {
		return nil, nil
	}

	stored := make([]models.SubmissionFile, 0, len(files))
	key := fmt.Sprintf("assignments/%d/users/%d", assignment.ID, userID)

	for _, file := range files {
		ext := filepath.Ext(file.Filename)
		if !assignment.AllowsExtension(ext) {
			return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
		}

		if assignment.MaxFileSizeMB > 0 && file.Size > int64(assignment.MaxFileSizeMB)*1024*1024 {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, file.Filename)
		}

		contentType, err := detectContentType(file)
		if err != nil {
			return nil, err
		}

		reader, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}

		path, err := s.store.Save(ctx, key, file.Filename, reader)
		_ = reader.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to store file: %w", err)
		}

		stored = append(stored, models.SubmissionFile{
			FileName:    file.Filename,
			FilePath:    path,
			FileSize:    file.Size,
			ContentType: contentType,
			UploadDate:  s.now(),
		})
	}

	return stored, nil
}

func (s *submissionService) recordActivity(ctx context.Context, actor ActivityActor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := entityID
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "submission",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func detectContentType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}

	return mime.String(), nil
}

func submissionLateLabel(submission models.Submission) string {
	if submission.IsLate() {
		return "late"
	}
	return "on_time"
}
