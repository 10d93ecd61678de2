package handler

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/middleware"
	"github.com/campusloop/assess-api/internal/service"
	"github.com/campusloop/assess-api/internal/utils"
)

// SubmissionHandler manages student submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes. The assignment-scoped group carries the
// :assignmentId param, the flat group serves lookups by submission id.
func (h *SubmissionHandler) Register(assignments fiber.Router, submissions fiber.Router) {
	assignments.Get("/:assignmentId/submissions", h.listForAssignment)
	assignments.Get("/:assignmentId/submissions/me", h.getMine)
	assignments.Post("/:assignmentId/submissions/draft", h.saveDraft)
	assignments.Post("/:assignmentId/submissions", h.submit)
	submissions.Get("/me", h.listMine)
	submissions.Get("/:id", h.get)
}

func (h *SubmissionHandler) listForAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.SubmissionFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	items, err := h.service.List(c.Context(), filter, &assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) getMine(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.GetForUser(c.Context(), assignmentID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listMine(c *fiber.Ctx) error {
	items, err := h.service.ListByUser(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) saveDraft(c *fiber.Ctx) error {
	return h.upsert(c, h.service.SaveDraft, "draft saved")
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	return h.upsert(c, h.service.Submit, "submission received")
}

type upsertFunc func(ctx context.Context, assignmentID uint, actor service.ActivityActor, payload dto.SubmissionDraftRequest, files []*multipart.FileHeader) (dto.SubmissionResponse, error)

func (h *SubmissionHandler) upsert(c *fiber.Ctx, fn upsertFunc, message string) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionDraftRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	files := formFiles(c)

	submission, err := fn(c.Context(), assignmentID, middleware.Actor(c), payload, files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, message, submission)
}

// formFiles extracts uploaded files when the request is multipart. JSON-only
// drafts carry no form, so a parse failure is not an error here.
func formFiles(c *fiber.Ctx) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["files"]
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrPastDeadline):
		return utils.SendError(c, fiber.StatusBadRequest, "the submission deadline has passed")
	case errors.Is(err, service.ErrEmptySubmission):
		return utils.SendError(c, fiber.StatusBadRequest, "a text answer or at least one file is required")
	case errors.Is(err, service.ErrFileRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "this assignment requires a file upload")
	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusBadRequest, "uploaded file exceeds the size limit")
	case errors.Is(err, service.ErrExtensionNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "file type is not allowed for this assignment")
	case errors.Is(err, service.ErrSubmissionLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission is locked while it is being reviewed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
