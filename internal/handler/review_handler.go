package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/middleware"
	"github.com/campusloop/assess-api/internal/service"
	"github.com/campusloop/assess-api/internal/utils"
)

// ReviewHandler manages teacher review and grading endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the review routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/pending", h.pending)
	router.Put("/:submissionId/draft", h.saveDraft)
	router.Post("/:submissionId/revision", h.requestRevision)
	router.Post("/:submissionId/complete", h.complete)
	router.Post("/batch", h.batchGrade)
}

func (h *ReviewHandler) pending(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	queue, err := h.service.PendingQueue(c.Context(), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending submissions retrieved", queue)
}

func (h *ReviewHandler) saveDraft(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.SaveReviewDraft(c.Context(), submissionID, payload, middleware.Actor(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review draft saved", submission)
}

func (h *ReviewHandler) requestRevision(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.RequestRevision(c.Context(), submissionID, payload.Comment, middleware.Actor(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "revision requested", submission)
}

func (h *ReviewHandler) complete(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.CompleteReview(c.Context(), submissionID, payload, middleware.Actor(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review completed", submission)
}

func (h *ReviewHandler) batchGrade(c *fiber.Ctx) error {
	var payload dto.BatchGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.BatchGrade(c.Context(), payload, middleware.Actor(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "batch grading finished", result)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrSubmissionNotReviewable):
		return utils.SendError(c, fiber.StatusConflict, "submission is not in a reviewable state")
	case errors.Is(err, service.ErrMissingComment):
		return utils.SendError(c, fiber.StatusBadRequest, "a comment is required to request a revision")
	case errors.Is(err, service.ErrIncompleteScoring):
		return utils.SendError(c, fiber.StatusBadRequest, "every criterion must be scored before completing a review")
	case errors.Is(err, service.ErrUnknownCriteria):
		return utils.SendError(c, fiber.StatusBadRequest, "score references a criterion that does not belong to the assignment")
	case errors.Is(err, service.ErrScoreExceedsMax):
		return utils.SendError(c, fiber.StatusBadRequest, "score exceeds the criterion maximum")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
