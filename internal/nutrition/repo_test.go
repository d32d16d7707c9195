//go:build integration_test || all_tests

package nutrition_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/habitpet/caloriecam/internal/db"
	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_SeedAndUpsert(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     host,
		DBPort:     "5432",
		DBName:     "caloriecam",
		DBPassword: os.Getenv("POSTGRES_PASS"),
	})
	require.NoError(t, err)
	defer dbPool.Close()
	require.NoError(t, db.EnsureSchema(ctx, dbPool))

	_, err = dbPool.Exec(ctx, `DELETE FROM food_prior`)
	require.NoError(t, err)

	repo := nutrition.NewRepo(dbPool)

	entries, err := nutrition.LoadSeedEntries("")
	require.NoError(t, err)
	imported, err := repo.ImportSeed(ctx, entries)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, imported, len(entries))

	seed, err := nutrition.NewDefaultSeedDB()
	require.NoError(t, err)
	want, err := seed.GetPriors(ctx, "pizza")
	require.NoError(t, err)

	got, err := repo.GetPriors(ctx, "Pizza Slice")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	custom := estimation.FoodPriors{
		Density:  estimation.Gaussian{Mu: 0.6, Sigma: 0.05},
		KcalPerG: estimation.Gaussian{Mu: 2.9, Sigma: 0.3},
	}
	require.NoError(t, repo.Upsert(ctx, "Pizza", custom, "manual"))
	got, err = repo.GetPriors(ctx, "pizza")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	_, err = repo.GetPriors(ctx, "unicorn steak")
	assert.ErrorIs(t, err, nutrition.ErrPriorsNotFound)
}
