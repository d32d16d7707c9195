//go:build integration_test || all_tests

package meallog_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/habitpet/caloriecam/internal/db"
	"github.com/habitpet/caloriecam/internal/meallog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*meallog.Repo, *pgxpool.Pool, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "caloriecam",
		DBPassword:     os.Getenv("POSTGRES_PASS"),
		TracingEnabled: false,
	})
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(timeoutCtx, dbPool))

	return meallog.NewRepo(dbPool), dbPool, func() {
		dbPool.Close()
	}
}

func TestRepo_BasicCRUD(t *testing.T) {
	repo, dbPool, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	tag, err := dbPool.Exec(ctx, `DELETE FROM meal`)
	require.NoError(t, err)
	t.Logf("test setup, deleted meals: %d", tag.RowsAffected())

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	breakfast := meallog.Meal{
		Label:     "oatmeal",
		Calories:  310,
		ProteinG:  11.5,
		CarbsG:    54,
		FatG:      6.2,
		Portion:   1,
		Source:    meallog.SourceCamera,
		VolumeML:  280,
		Sigma:     35,
		Evidence:  []string{"Analyzer", "Geometry", "Router"},
		CreatedAt: day.Add(8 * time.Hour),
	}
	lunch := meallog.Meal{
		Label:     "chicken salad",
		Calories:  450,
		Portion:   0.5,
		Source:    meallog.SourceManual,
		Evidence:  []string{},
		CreatedAt: day.Add(13 * time.Hour),
	}
	nextDay := lunch
	nextDay.CreatedAt = day.Add(25 * time.Hour)

	added1, err := repo.Add(ctx, breakfast)
	require.NoError(t, err)
	require.NotZero(t, added1.ID)
	added2, err := repo.Add(ctx, lunch)
	require.NoError(t, err)
	_, err = repo.Add(ctx, nextDay)
	require.NoError(t, err)

	got, err := repo.Get(ctx, added1.ID)
	require.NoError(t, err)
	assert.Equal(t, breakfast.Label, got.Label)
	assert.Equal(t, breakfast.Calories, got.Calories)
	assert.Equal(t, breakfast.Evidence, got.Evidence)
	assert.Equal(t, meallog.SourceCamera, got.Source)
	assert.True(t, breakfast.CreatedAt.Equal(got.CreatedAt))

	meals, err := repo.ListForDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, added1.ID, meals[0].ID)
	assert.Equal(t, added2.ID, meals[1].ID)

	summary := meallog.Summarize(day, meals, 2000)
	assert.Equal(t, 310+225, summary.Calories)

	require.NoError(t, repo.Delete(ctx, added1.ID))
	assert.ErrorIs(t, repo.Delete(ctx, added1.ID), meallog.ErrMealNotFound)
	_, err = repo.Get(ctx, added1.ID)
	assert.ErrorIs(t, err, meallog.ErrMealNotFound)
}
