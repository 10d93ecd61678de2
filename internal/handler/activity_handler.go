package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/service"
	"github.com/campusloop/assess-api/internal/utils"
)

// ActivityHandler exposes the audit trail to course staff.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	filter := dto.ActivityFilter{}
	if entityType := c.Query("entity_type"); entityType != "" {
		filter.EntityType = &entityType
	}
	if actorID, err := parseQueryUint(c, "actor_id"); err == nil {
		filter.ActorID = actorID
	}
	if entityID, err := parseQueryUint(c, "entity_id"); err == nil {
		filter.EntityID = entityID
	}
	if limit, err := parseQueryInt(c, "limit"); err == nil {
		filter.Limit = limit
	}

	entries, err := h.service.List(c.Context(), filter)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
