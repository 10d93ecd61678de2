package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/models"
)

type eventsStub struct {
	events []GradingEvent
}

func (e *eventsStub) Publish(_ context.Context, event GradingEvent) error {
	e.events = append(e.events, event)
	return nil
}

// reviewFixture seeds one assignment with a 50/50 rubric and one submitted
// submission, returning the wired review service and its collaborator stubs.
func reviewFixture(t *testing.T, submittedAt, due time.Time) (*memorySubmissionRepo, ReviewService, *recorderStub, *eventsStub, models.Submission) {
	t.Helper()
	assignments := newMemoryAssignmentRepo()
	submissions := newMemorySubmissionRepo(assignments)
	recorder := &recorderStub{}
	events := &eventsStub{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	penalty := 10
	assignment := models.Assignment{
		CourseID:             1,
		Title:                "Term Paper",
		DueDate:              due,
		MaxScore:             100,
		AllowLateSubmissions: true,
		LatePenaltyPerDay:    &penalty,
		Criteria: []models.Criteria{
			{Description: "Argument", MaxScore: 50},
			{Description: "Sources", MaxScore: 50},
		},
	}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	submission := models.Submission{
		AssignmentID:   assignment.ID,
		UserID:         11,
		TextAnswer:     "paper",
		SubmissionDate: submittedAt,
		Status:         models.SubmissionStatusSubmitted,
	}
	require.NoError(t, submissions.Create(context.Background(), &submission))

	svc := NewReviewService(submissions, validate, recorder, events, testLogger())
	return submissions, svc, recorder, events, submission
}

func criteriaIDs(repo *memorySubmissionRepo, submissionID uint) (uint, uint) {
	submission, _ := repo.GetByID(context.Background(), submissionID)
	return submission.Assignment.Criteria[0].ID, submission.Assignment.Criteria[1].ID
}

func TestSaveReviewDraftMovesUnderReview(t *testing.T) {
	repo, svc, recorder, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))
	firstID, _ := criteriaIDs(repo, submission.ID)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	result, err := svc.SaveReviewDraft(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{{CriteriaID: firstID, Score: 30}},
		TeacherComment: "looking good so far",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusUnderReview, result.Status)
	require.Len(t, result.CriteriaScores, 1)
	require.Nil(t, result.Score, "a draft review must not finalise the score")
	require.Len(t, recorder.entries, 1)
	require.Equal(t, "review.draft_saved", recorder.entries[0].Action)
}

func TestRequestRevisionRequiresComment(t *testing.T) {
	_, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))

	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := svc.RequestRevision(context.Background(), submission.ID, "   ", actor)
	require.ErrorIs(t, err, ErrMissingComment)

	result, err := svc.RequestRevision(context.Background(), submission.ID, "please expand section 3", actor)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusRequiresRevision, result.Status)
	require.Equal(t, "please expand section 3", result.TeacherComment)
}

func TestCompleteReviewRequiresEveryCriterionScored(t *testing.T) {
	repo, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))
	firstID, _ := criteriaIDs(repo, submission.ID)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{{CriteriaID: firstID, Score: 30}},
	}, actor)
	require.ErrorIs(t, err, ErrIncompleteScoring)
}

func TestCompleteReviewComputesScoreOnTime(t *testing.T) {
	repo, svc, _, events, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))
	firstID, secondID := criteriaIDs(repo, submission.ID)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	result, err := svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{
			{CriteriaID: firstID, Score: 40},
			{CriteriaID: secondID, Score: 35},
		},
		TeacherComment: "solid work",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReviewed, result.Status)
	require.NotNil(t, result.Score)
	require.Equal(t, 75, *result.Score)
	require.NotNil(t, result.ReviewDate)

	require.Len(t, events.events, 1)
	require.Equal(t, "review.completed", events.events[0].Action)
	require.Equal(t, submission.ID, events.events[0].SubmissionID)
}

func TestCompleteReviewAppliesLatePenalty(t *testing.T) {
	due := time.Now().Add(-49 * time.Hour)
	repo, svc, _, _, submission := reviewFixture(t, time.Now(), due)
	firstID, secondID := criteriaIDs(repo, submission.ID)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	result, err := svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{
			{CriteriaID: firstID, Score: 40},
			{CriteriaID: secondID, Score: 35},
		},
	}, actor)
	require.NoError(t, err)
	// 75 percent base, two full days late at 10 percent per day.
	require.Equal(t, 55, *result.Score)
}

func TestCompleteReviewRejectsInvalidScores(t *testing.T) {
	repo, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))
	firstID, secondID := criteriaIDs(repo, submission.ID)

	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{
			{CriteriaID: firstID, Score: 60},
			{CriteriaID: secondID, Score: 10},
		},
	}, actor)
	require.ErrorIs(t, err, ErrScoreExceedsMax)

	_, err = svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{
			{CriteriaID: 9999, Score: 10},
			{CriteriaID: secondID, Score: 10},
		},
	}, actor)
	require.ErrorIs(t, err, ErrUnknownCriteria)
}

func TestCompleteReviewRejectsNonReviewable(t *testing.T) {
	repo, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))
	firstID, secondID := criteriaIDs(repo, submission.ID)

	stored := repo.submissions[submission.ID]
	stored.Status = models.SubmissionStatusDraft
	repo.submissions[submission.ID] = stored

	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := svc.CompleteReview(context.Background(), submission.ID, dto.ReviewSaveRequest{
		CriteriaScores: []dto.CriteriaScoreInput{
			{CriteriaID: firstID, Score: 10},
			{CriteriaID: secondID, Score: 10},
		},
	}, actor)
	require.ErrorIs(t, err, ErrSubmissionNotReviewable)
}

func TestBatchGradeIsolatesFailures(t *testing.T) {
	repo, svc, _, events, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))

	second := models.Submission{
		AssignmentID:   submission.AssignmentID,
		UserID:         12,
		SubmissionDate: time.Now(),
		Status:         models.SubmissionStatusSubmitted,
	}
	require.NoError(t, repo.Create(context.Background(), &second))

	locked := models.Submission{
		AssignmentID:   submission.AssignmentID,
		UserID:         13,
		SubmissionDate: time.Now(),
		Status:         models.SubmissionStatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), &locked))

	actor := ActivityActor{ID: 1, Role: "teacher"}
	result, err := svc.BatchGrade(context.Background(), dto.BatchGradeRequest{
		SubmissionIDs: []uint{submission.ID, second.ID, locked.ID, 9999},
		Score:         80,
		Comment:       "group feedback",
	}, actor)
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 2, result.Failed)
	require.Len(t, result.Items, 4)
	require.True(t, result.Items[0].Success)
	require.False(t, result.Items[2].Success)
	require.False(t, result.Items[3].Success)

	graded, err := repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReviewed, graded.Status)
	require.Equal(t, 80, *graded.Score)
	require.Equal(t, "group feedback", graded.TeacherComment)

	untouched, err := repo.GetByID(context.Background(), locked.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, untouched.Status)
	require.Nil(t, untouched.Score)

	require.Len(t, events.events, 2, "only successful items publish events")
}

func TestBatchGradeReapplyIsIdempotent(t *testing.T) {
	repo, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))

	second := models.Submission{
		AssignmentID:   submission.AssignmentID,
		UserID:         12,
		SubmissionDate: time.Now(),
		Status:         models.SubmissionStatusSubmitted,
	}
	require.NoError(t, repo.Create(context.Background(), &second))

	actor := ActivityActor{ID: 1, Role: "teacher"}
	payload := dto.BatchGradeRequest{
		SubmissionIDs: []uint{submission.ID, second.ID},
		Score:         70,
		Comment:       "group feedback",
	}

	first, err := svc.BatchGrade(context.Background(), payload, actor)
	require.NoError(t, err)
	require.Equal(t, 2, first.Succeeded)
	require.Equal(t, 0, first.Failed)

	// The identical batch over now-reviewed rows succeeds and changes nothing.
	repeat, err := svc.BatchGrade(context.Background(), payload, actor)
	require.NoError(t, err)
	require.Equal(t, 2, repeat.Succeeded)
	require.Equal(t, 0, repeat.Failed)

	graded, err := repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReviewed, graded.Status)
	require.Equal(t, 70, *graded.Score)
	require.Equal(t, "group feedback", graded.TeacherComment)
}

func TestBatchGradeRequiresComment(t *testing.T) {
	_, svc, _, _, submission := reviewFixture(t, time.Now(), time.Now().Add(time.Hour))

	actor := ActivityActor{ID: 1, Role: "teacher"}
	_, err := svc.BatchGrade(context.Background(), dto.BatchGradeRequest{
		SubmissionIDs: []uint{submission.ID},
		Score:         50,
	}, actor)
	require.Error(t, err)
}

func TestPendingQueueOldestFirst(t *testing.T) {
	repo, svc, _, _, submission := reviewFixture(t, time.Now().Add(-2*time.Hour), time.Now().Add(time.Hour))

	newer := models.Submission{
		AssignmentID:   submission.AssignmentID,
		UserID:         20,
		SubmissionDate: time.Now(),
		Status:         models.SubmissionStatusSubmitted,
	}
	require.NoError(t, repo.Create(context.Background(), &newer))

	reviewed := models.Submission{
		AssignmentID:   submission.AssignmentID,
		UserID:         21,
		SubmissionDate: time.Now(),
		Status:         models.SubmissionStatusReviewed,
	}
	require.NoError(t, repo.Create(context.Background(), &reviewed))

	queue, err := svc.PendingQueue(context.Background(), &submission.AssignmentID)
	require.NoError(t, err)
	require.Len(t, queue, 2, "reviewed submissions stay out of the queue")
	require.Equal(t, submission.ID, queue[0].ID, "oldest submission first")
}
