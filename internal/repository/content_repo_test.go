package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

func TestContentRepositoryUpdateDataReplacesBlob(t *testing.T) {
	db := setupGradingTestDB(t, &models.CourseContent{})
	repo := NewContentRepository(db)

	content := models.CourseContent{
		CourseID: 3,
		Title:    "Week 1 Quiz",
		Kind:     models.ContentKindQuiz,
		Data:     datatypes.JSON([]byte(`{"version":1,"quiz":{"title":"Old"}}`)),
	}
	require.NoError(t, repo.Create(context.Background(), &content))

	updated := datatypes.JSON([]byte(`{"version":1,"quiz":{"title":"New"}}`))
	require.NoError(t, repo.UpdateData(context.Background(), content.ID, updated))

	got, err := repo.GetByID(context.Background(), content.ID)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got.Data, &decoded))
	quiz, ok := decoded["quiz"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "New", quiz["title"])
}

func TestContentRepositoryUpdateDataMissingRow(t *testing.T) {
	db := setupGradingTestDB(t, &models.CourseContent{})
	repo := NewContentRepository(db)

	err := repo.UpdateData(context.Background(), 999, datatypes.JSON([]byte(`{}`)))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContentRepositoryListByCourse(t *testing.T) {
	db := setupGradingTestDB(t, &models.CourseContent{})
	repo := NewContentRepository(db)

	for _, c := range []models.CourseContent{
		{CourseID: 1, Title: "Quiz A", Kind: models.ContentKindQuiz},
		{CourseID: 1, Title: "Reading", Kind: models.ContentKindText},
		{CourseID: 2, Title: "Quiz B", Kind: models.ContentKindQuiz},
	} {
		content := c
		require.NoError(t, repo.Create(context.Background(), &content))
	}

	contents, err := repo.ListByCourse(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, contents, 2)
}
