package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

func TestAssignmentRepositoryCreatePreservesCriteriaAndPolicy(t *testing.T) {
	db := setupGradingTestDB(t, &models.Assignment{}, &models.Criteria{}, &models.Submission{})
	repo := NewAssignmentRepository(db)

	penalty := 10
	assignment := models.Assignment{
		CourseID:             2,
		Title:                "Lab Report",
		DueDate:              time.Now().Add(72 * time.Hour),
		MaxScore:             100,
		RequiresFileUpload:   true,
		AllowedExtensions:    []string{"pdf", ".DOCX"},
		MaxFileSizeMB:        5,
		AllowLateSubmissions: true,
		LatePenaltyPerDay:    &penalty,
		Criteria: []models.Criteria{
			{Description: "Method", MaxScore: 50},
			{Description: "Results", MaxScore: 50},
		},
	}
	require.NoError(t, repo.Create(context.Background(), &assignment))

	stored, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, stored.Criteria, 2)
	require.Equal(t, []string{".pdf", ".docx"}, stored.AllowedExtensions, "extensions should round-trip normalised")
	require.NotNil(t, stored.LatePenaltyPerDay)
	require.Equal(t, 10, *stored.LatePenaltyPerDay)
}

func TestAssignmentRepositoryReplaceCriteria(t *testing.T) {
	db := setupGradingTestDB(t, &models.Assignment{}, &models.Criteria{}, &models.Submission{})
	repo := NewAssignmentRepository(db)

	assignment := models.Assignment{
		CourseID: 1,
		Title:    "Quiz Prep",
		DueDate:  time.Now().Add(time.Hour),
		MaxScore: 100,
		Criteria: []models.Criteria{{Description: "Old", MaxScore: 100}},
	}
	require.NoError(t, repo.Create(context.Background(), &assignment))

	require.NoError(t, repo.ReplaceCriteria(context.Background(), assignment.ID, []models.Criteria{
		{Description: "Accuracy", MaxScore: 70},
		{Description: "Clarity", MaxScore: 30},
	}))

	stored, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, stored.Criteria, 2)
	require.Equal(t, "Accuracy", stored.Criteria[0].Description)

	require.NoError(t, repo.ReplaceCriteria(context.Background(), assignment.ID, nil))
	stored, err = repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Criteria)
}

func TestAssignmentRepositoryListFiltersByCourseAndSearch(t *testing.T) {
	db := setupGradingTestDB(t, &models.Assignment{}, &models.Criteria{}, &models.Submission{})
	repo := NewAssignmentRepository(db)

	now := time.Now()
	a := models.Assignment{CourseID: 1, Title: "Sorting Algorithms", DueDate: now.Add(time.Hour), MaxScore: 100}
	b := models.Assignment{CourseID: 1, Title: "Graph Theory", DueDate: now.Add(2 * time.Hour), MaxScore: 100}
	c := models.Assignment{CourseID: 2, Title: "Sorting Networks", DueDate: now.Add(3 * time.Hour), MaxScore: 100}
	for _, item := range []*models.Assignment{&a, &b, &c} {
		require.NoError(t, repo.Create(context.Background(), item))
	}

	courseID := uint(1)
	got, total, err := repo.List(context.Background(), AssignmentFilter{CourseID: &courseID})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	require.Equal(t, "Sorting Algorithms", got[0].Title, "default ordering is by due date ascending")

	searched, total, err := repo.List(context.Background(), AssignmentFilter{Search: "sorting"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, searched, 2)

	paged, total, err := repo.List(context.Background(), AssignmentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestAssignmentRepositoryDeleteMissing(t *testing.T) {
	db := setupGradingTestDB(t, &models.Assignment{}, &models.Criteria{}, &models.Submission{})
	repo := NewAssignmentRepository(db)

	err := repo.Delete(context.Background(), 12345)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
