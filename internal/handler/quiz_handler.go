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

// QuizHandler manages quiz definition and attempt endpoints.
type QuizHandler struct {
	quizzes  service.QuizService
	attempts service.QuizAttemptService
	logger   zerolog.Logger
}

// NewQuizHandler builds a quiz handler instance.
func NewQuizHandler(quizzes service.QuizService, attempts service.QuizAttemptService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes:  quizzes,
		attempts: attempts,
		logger:   logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches routes. Students read the quiz and submit attempts,
// authors save quiz definitions and inspect all attempts.
func (h *QuizHandler) Register(read fiber.Router, write fiber.Router) {
	read.Get("/:contentId/quiz", h.get)
	read.Post("/:contentId/quiz/attempts", h.completeAttempt)
	read.Get("/:contentId/quiz/attempts/me", h.getMyAttempt)
	write.Put("/:contentId/quiz", h.save)
	write.Get("/:contentId/quiz/attempts", h.listAttempts)
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	contentID, err := parseUintParam(c, "contentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.quizzes.Get(c.Context(), contentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz retrieved", quiz)
}

func (h *QuizHandler) save(c *fiber.Ctx) error {
	contentID, err := parseUintParam(c, "contentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.quizzes.Save(c.Context(), contentID, payload, middleware.Actor(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz saved", quiz)
}

func (h *QuizHandler) completeAttempt(c *fiber.Ctx) error {
	contentID, err := parseUintParam(c, "contentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AttemptCompleteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := h.attempts.Complete(c.Context(), contentID, middleware.Actor(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt graded", attempt)
}

func (h *QuizHandler) getMyAttempt(c *fiber.Ctx) error {
	contentID, err := parseUintParam(c, "contentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempt, err := h.attempts.GetForUser(c.Context(), contentID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *QuizHandler) listAttempts(c *fiber.Ctx) error {
	contentID, err := parseUintParam(c, "contentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempts, err := h.attempts.ListByQuiz(c.Context(), contentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempts retrieved", attempts)
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrContentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "content not found")
	case errors.Is(err, service.ErrNotQuizContent):
		return utils.SendError(c, fiber.StatusBadRequest, "content is not a quiz")
	case errors.Is(err, service.ErrQuizInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, "quiz definition is invalid")
	case errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
