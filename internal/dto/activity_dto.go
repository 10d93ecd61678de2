package dto

import (
	"time"

	"github.com/campusloop/assess-api/internal/models"
)

// ActivityFilter narrows audit log listings.
type ActivityFilter struct {
	ActorID    *uint   `query:"actor_id" validate:"omitempty,gt=0"`
	EntityType *string `query:"entity_type" validate:"omitempty,max=64"`
	EntityID   *uint   `query:"entity_id" validate:"omitempty,gt=0"`
	Limit      int     `query:"limit" validate:"omitempty,gt=0,lte=200"`
}

// ActivityResponse serializes one audit entry.
type ActivityResponse struct {
	ID         uint           `json:"id"`
	ActorID    uint           `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *uint          `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewActivityResponse maps an audit entry to its API shape.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}

// NewActivityResponseSlice maps a list of audit entries.
func NewActivityResponseSlice(entries []models.ActivityLog) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewActivityResponse(entry))
	}
	return responses
}
