package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
	"github.com/campusloop/assess-api/internal/observability"
	"github.com/campusloop/assess-api/internal/repository"
)

// ErrSubmissionNotReviewable indicates the submission is not in a state a
// reviewer may act on.
var ErrSubmissionNotReviewable = errors.New("submission is not reviewable")

// ErrMissingComment indicates a revision request arrived without feedback.
var ErrMissingComment = errors.New("a comment is required when requesting revision")

// ErrIncompleteScoring indicates not every rubric criterion has a score.
var ErrIncompleteScoring = errors.New("every criterion must be scored before completing the review")

// ErrUnknownCriteria indicates a score references a criterion the assignment
// does not define.
var ErrUnknownCriteria = errors.New("score references an unknown criterion")

// ErrScoreExceedsMax indicates a criterion score surpasses its configured max.
var ErrScoreExceedsMax = errors.New("score exceeds the criterion maximum")

// GradingEvent describes a completed grading action published to interested
// consumers.
type GradingEvent struct {
	Action       string    `json:"action"`
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	UserID       uint      `json:"user_id"`
	Score        *int      `json:"score,omitempty"`
	ActorID      uint      `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// GradingEventPublisher delivers grading events to external consumers.
type GradingEventPublisher interface {
	Publish(ctx context.Context, event GradingEvent) error
}

// ReviewService drives the reviewer side of the submission lifecycle.
type ReviewService interface {
	PendingQueue(ctx context.Context, assignmentID *uint) ([]dto.SubmissionResponse, error)
	SaveReviewDraft(ctx context.Context, submissionID uint, payload dto.ReviewSaveRequest, actor ActivityActor) (dto.SubmissionResponse, error)
	RequestRevision(ctx context.Context, submissionID uint, comment string, actor ActivityActor) (dto.SubmissionResponse, error)
	CompleteReview(ctx context.Context, submissionID uint, payload dto.ReviewSaveRequest, actor ActivityActor) (dto.SubmissionResponse, error)
	BatchGrade(ctx context.Context, payload dto.BatchGradeRequest, actor ActivityActor) (dto.BatchGradeResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	events      GradingEventPublisher
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewReviewService constructs the review workflow service.
func NewReviewService(subRepo repository.SubmissionRepository, validate *validator.Validate, activity ActivityRecorder, events GradingEventPublisher, logger zerolog.Logger) ReviewService {
	return &reviewService{
		submissions: subRepo,
		validator:   validate,
		activity:    activity,
		events:      events,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "review_service").Logger(),
		tracer:      otel.Tracer("github.com/campusloop/assess-api/internal/service/review"),
		now:         time.Now,
	}
}

// PendingQueue lists submissions awaiting reviewer action, oldest first so the
// longest-waiting work surfaces at the top.
func (s *reviewService) PendingQueue(ctx context.Context, assignmentID *uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: assignmentID,
		Statuses:     []string{models.SubmissionStatusSubmitted, models.SubmissionStatusUnderReview},
	})
	if err != nil {
		return nil, err
	}

	// List orders newest first; the queue wants the opposite.
	for i, j := 0, len(submissions)-1; i < j; i, j = i+1, j-1 {
		submissions[i], submissions[j] = submissions[j], submissions[i]
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// SaveReviewDraft records partial scoring and moves a submitted item under
// review. Scores may cover any subset of the rubric at this stage.
func (s *reviewService) SaveReviewDraft(ctx context.Context, submissionID uint, payload dto.ReviewSaveRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getReviewable(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	scores, err := buildCriteriaScores(submission.Assignment, payload.CriteriaScores, false)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.submissions.ReplaceCriteriaScores(ctx, submission.ID, scores); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission.TeacherComment = s.sanitizer.Sanitize(payload.TeacherComment)
	submission.Status = models.SubmissionStatusUnderReview
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordActivity(ctx, actor, "review.draft_saved", submission.ID, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
		"scored":        len(scores),
	})

	return s.reload(ctx, submission.ID)
}

// RequestRevision sends the submission back to the learner. The comment is
// mandatory so the learner always knows what to fix.
func (s *reviewService) RequestRevision(ctx context.Context, submissionID uint, comment string, actor ActivityActor) (dto.SubmissionResponse, error) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(comment))
	if clean == "" {
		return dto.SubmissionResponse{}, ErrMissingComment
	}

	submission, err := s.getReviewable(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission.TeacherComment = clean
	submission.Status = models.SubmissionStatusRequiresRevision
	submission.Score = nil
	submission.ReviewDate = nil
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordActivity(ctx, actor, "review.revision_requested", submission.ID, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
	})
	s.publishEvent(ctx, "review.revision_requested", submission, actor)

	return s.reload(ctx, submission.ID)
}

// CompleteReview finalises the grade. Every rubric criterion must carry a
// score; the final percentage is derived from the recorded scores with the
// late penalty applied.
func (s *reviewService) CompleteReview(ctx context.Context, submissionID uint, payload dto.ReviewSaveRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.complete", trace.WithAttributes(
		attribute.Int64("review.submission_id", int64(submissionID)),
		attribute.Int64("review.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getReviewable(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_not_reviewable")
		return dto.SubmissionResponse{}, err
	}

	scores, err := buildCriteriaScores(submission.Assignment, payload.CriteriaScores, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring_invalid")
		return dto.SubmissionResponse{}, err
	}

	if err := s.submissions.ReplaceCriteriaScores(ctx, submission.ID, scores); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submission.CriteriaScores = scores
	finalScore := submission.FinalScore()
	reviewDate := s.now()

	submission.Score = &finalScore
	submission.TeacherComment = s.sanitizer.Sanitize(payload.TeacherComment)
	submission.Status = models.SubmissionStatusReviewed
	submission.ReviewDate = &reviewDate

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	observability.ReviewsCompletedTotal().WithLabelValues("single").Inc()
	observability.ReviewScoreHistogram().Observe(float64(finalScore))

	s.recordActivity(ctx, actor, "review.completed", submission.ID, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
		"score":         finalScore,
		"is_late":       submission.IsLate(),
		"penalty":       submission.PenaltyPercent(),
	})
	s.publishEvent(ctx, "review.completed", submission, actor)

	span.SetAttributes(
		attribute.Int("review.score", finalScore),
		attribute.Bool("review.late", submission.IsLate()),
	)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("score", finalScore).
		Int("penalty", submission.PenaltyPercent()).
		Msg("review completed")

	return s.reload(ctx, submission.ID)
}

// BatchGrade applies one score to many submissions, isolating failures so a
// bad item never aborts the rest of the batch.
func (s *reviewService) BatchGrade(ctx context.Context, payload dto.BatchGradeRequest, actor ActivityActor) (dto.BatchGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.batch_grade", trace.WithAttributes(
		attribute.Int("review.batch_size", len(payload.SubmissionIDs)),
		attribute.Int64("review.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.BatchGradeResponse{}, err
	}

	comment := strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment))
	result := dto.BatchGradeResponse{Items: make([]dto.BatchGradeItemResult, 0, len(payload.SubmissionIDs))}

	for _, submissionID := range payload.SubmissionIDs {
		if err := s.gradeOne(ctx, submissionID, payload.Score, comment, actor); err != nil {
			result.Failed++
			result.Items = append(result.Items, dto.BatchGradeItemResult{
				SubmissionID: submissionID,
				Success:      false,
				Error:        err.Error(),
			})
			s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("batch grade item failed")
			continue
		}

		result.Succeeded++
		result.Items = append(result.Items, dto.BatchGradeItemResult{SubmissionID: submissionID, Success: true})
	}

	observability.ReviewsCompletedTotal().WithLabelValues("batch").Add(float64(result.Succeeded))

	span.SetAttributes(
		attribute.Int("review.batch_succeeded", result.Succeeded),
		attribute.Int("review.batch_failed", result.Failed),
	)

	s.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("batch grade finished")

	return result, nil
}

// gradeOne applies a uniform score to a single batch item. Unlike a full
// review it does not touch the rubric; the given score is recorded as-is.
// Already-reviewed submissions are re-graded, so re-running the same batch
// succeeds and leaves every item unchanged.
func (s *reviewService) gradeOne(ctx context.Context, submissionID uint, score int, comment string, actor ActivityActor) error {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	if !submission.IsReviewable() && submission.Status != models.SubmissionStatusReviewed {
		return ErrSubmissionNotReviewable
	}

	reviewDate := s.now()
	applied := score

	submission.Score = &applied
	submission.TeacherComment = comment
	submission.Status = models.SubmissionStatusReviewed
	submission.ReviewDate = &reviewDate

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return err
	}

	s.recordActivity(ctx, actor, "review.batch_graded", submission.ID, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
		"score":         applied,
	})
	s.publishEvent(ctx, "review.completed", submission, actor)

	return nil
}

func (s *reviewService) getReviewable(ctx context.Context, submissionID uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	if !submission.IsReviewable() {
		return models.Submission{}, ErrSubmissionNotReviewable
	}

	return submission, nil
}

func (s *reviewService) reload(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) recordActivity(ctx context.Context, actor ActivityActor, action string, entityID uint, metadata map[string]interface{}) {
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

func (s *reviewService) publishEvent(ctx context.Context, action string, submission models.Submission, actor ActivityActor) {
	if s.events == nil {
		return
	}
	event := GradingEvent{
		Action:       action,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		UserID:       submission.UserID,
		Score:        submission.Score,
		ActorID:      actor.ID,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to publish grading event")
	}
}

// buildCriteriaScores maps the payload onto the assignment rubric. When
// complete is set, every criterion must appear exactly once.
func buildCriteriaScores(assignment models.Assignment, inputs []dto.CriteriaScoreInput, complete bool) ([]models.CriteriaScore, error) {
	known := make(map[uint]models.Criteria, len(assignment.Criteria))
	for _, criterion := range assignment.Criteria {
		known[criterion.ID] = criterion
	}

	seen := make(map[uint]struct{}, len(inputs))
	scores := make([]models.CriteriaScore, 0, len(inputs))
	for _, input := range inputs {
		criterion, ok := known[input.CriteriaID]
		if !ok {
			return nil, ErrUnknownCriteria
		}
		if input.Score > criterion.MaxScore {
			return nil, ErrScoreExceedsMax
		}
		if _, dup := seen[input.CriteriaID]; dup {
			continue
		}
		seen[input.CriteriaID] = struct{}{}
		scores = append(scores, models.CriteriaScore{
			CriteriaID: input.CriteriaID,
			Score:      input.Score,
			Comment:    input.Comment,
		})
	}

	if complete && len(seen) != len(known) {
		return nil, ErrIncompleteScoring
	}

	return scores, nil
}
