package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-essay-api/internal/repository"
)

func TestCatalogServiceSeedIsIdempotent(t *testing.T) {
	db := setupWorkflowDB(t)
	catalog := NewCatalogService(repository.NewCatalogRepository(db), testLogger())
	ctx := context.Background()

	_, err := catalog.Seed(ctx)
	require.NoError(t, err)
	_, err = catalog.Seed(ctx)
	require.NoError(t, err)

	genres, err := catalog.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)
	require.Equal(t, "narrative", genres[0].Code)

	grades, err := catalog.ListGrades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 3)
	require.Equal(t, []int{7, 8, 9}, []int{grades[0].SortOrder, grades[1].SortOrder, grades[2].SortOrder})

	_, err = catalog.GenreByCode(ctx, "poetry")
	require.ErrorIs(t, err, ErrGenreNotFound)
	_, err = catalog.GradeByLevel(ctx, 12)
	require.ErrorIs(t, err, ErrGradeNotFound)
	_, err = catalog.GetGenre(ctx, 999)
	require.ErrorIs(t, err, ErrGenreNotFound)
	_, err = catalog.GetGrade(ctx, 999)
	require.ErrorIs(t, err, ErrGradeNotFound)
}
