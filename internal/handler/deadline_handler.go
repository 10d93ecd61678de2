package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/service"
	"github.com/campusloop/assess-api/internal/utils"
)

// DeadlineHandler serves the upcoming-deadline digest for a course.
type DeadlineHandler struct {
	service service.DeadlineService
	logger  zerolog.Logger
}

func NewDeadlineHandler(service service.DeadlineService, logger zerolog.Logger) *DeadlineHandler {
	return &DeadlineHandler{
		service: service,
		logger:  logger.With().Str("component", "deadline_handler").Logger(),
	}
}

func (h *DeadlineHandler) Register(router fiber.Router) {
	router.Get("/courses/:courseId", h.digest)
}

func (h *DeadlineHandler) digest(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var window time.Duration
	if days, err := parseQueryInt(c, "days"); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	digest, err := h.service.Digest(c.Context(), courseID, window)
	if err != nil {
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "deadline digest retrieved", digest)
}
