package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/campusloop/assess-api/internal/models"
)

func TestActivityLogRepositoryCreateAndList(t *testing.T) {
	db := setupGradingTestDB(t, &models.ActivityLog{})
	repo := NewActivityLogRepository(db)

	entityID := uint(42)
	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "teacher", Action: "review.completed", EntityType: "submission", EntityID: &entityID, Metadata: datatypes.JSONMap{"score": 85}},
		{ActorID: 1, ActorRole: "teacher", Action: "review.started", EntityType: "submission", EntityID: &entityID},
		{ActorID: 2, ActorRole: "student", Action: "submission.submitted", EntityType: "submission"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(context.Background(), &entries[i]))
	}

	actorID := uint(1)
	got, err := repo.List(context.Background(), ActivityLogFilter{ActorID: &actorID})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = repo.List(context.Background(), ActivityLogFilter{Action: "review.completed"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "submission", got[0].EntityType)

	got, err = repo.List(context.Background(), ActivityLogFilter{EntityType: "submission", EntityID: &entityID})
	require.NoError(t, err)
	require.Len(t, got, 2)
}
