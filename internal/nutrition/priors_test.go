package nutrition_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestCanonicalize(t *testing.T) {
	testCases := map[string]string{
		"Chicken Breast":     "chicken_breast",
		"  French-Fries ":    "french_fries",
		"Shepherd’s Pie":     "shepherd's_pie",
		"scrambled_eggs":     "scrambled_eggs",
		"Greek Yogurt-Plain": "greek_yogurt_plain",
		"":                   "",
	}
	for in, want := range testCases {
		assert.Equal(t, want, nutrition.Canonicalize(in), in)
	}
}

func TestSeedDB_Default(t *testing.T) {
	db, err := nutrition.NewDefaultSeedDB()
	require.NoError(t, err)
	assert.Greater(t, db.Len(), 18)

	ctx := context.Background()

	pizza, err := db.GetPriors(ctx, "Pizza")
	require.NoError(t, err)
	assert.Equal(t, 0.55, pizza.Density.Mu)
	assert.Equal(t, 2.66, pizza.KcalPerG.Mu)

	alias, err := db.GetPriors(ctx, "Pizza Slice")
	require.NoError(t, err)
	assert.Equal(t, pizza, alias)

	_, err = db.GetPriors(ctx, "unicorn steak")
	assert.ErrorIs(t, err, nutrition.ErrPriorsNotFound)
}

func TestLoadSeedEntries(t *testing.T) {
	entries, err := nutrition.LoadSeedEntries("")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	path := filepath.Join(t.TempDir(), "priors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- label: soup\n  aliases: [broth]\n  density: {mu: 1.0, sigma: 0.05}\n  kcal_per_g: {mu: 0.4, sigma: 0.1}\n"), 0o600))
	entries, err = nutrition.LoadSeedEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "soup", entries[0].Label)
	assert.Equal(t, []string{"broth"}, entries[0].Aliases)

	_, err = nutrition.LoadSeedEntries(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read priors seed")
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := nutrition.ParseSeed([]byte("- label: ''\n  density: {mu: 1, sigma: 0.1}\n  kcal_per_g: {mu: 1, sigma: 0.1}\n"))
	assert.ErrorContains(t, err, "empty label")

	_, err = nutrition.ParseSeed([]byte("- label: water\n  density: {mu: 1, sigma: 0.1}\n  kcal_per_g: {mu: 0, sigma: 0}\n"))
	assert.ErrorContains(t, err, "non-positive mean")

	_, err = nutrition.ParseSeed([]byte("{not: a list"))
	assert.Error(t, err)
}

func TestChain_GetPriors(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := NewMockPriorsDB(ctrl)
	second := NewMockPriorsDB(ctrl)
	chain := nutrition.NewChain(first, second)
	ctx := context.Background()

	want := estimation.DefaultPriors(0.9, 1.4)

	t.Run("falls_through_not_found", func(t *testing.T) {
		first.EXPECT().GetPriors(gomock.Any(), "pasta").Return(estimation.FoodPriors{}, nutrition.ErrPriorsNotFound)
		second.EXPECT().GetPriors(gomock.Any(), "pasta").Return(want, nil)

		got, err := chain.GetPriors(ctx, "pasta")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("first_hit_wins", func(t *testing.T) {
		first.EXPECT().GetPriors(gomock.Any(), "rice").Return(want, nil)

		got, err := chain.GetPriors(ctx, "rice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("stops_on_other_error", func(t *testing.T) {
		first.EXPECT().GetPriors(gomock.Any(), "soup").Return(estimation.FoodPriors{}, errors.New("db gone"))

		_, err := chain.GetPriors(ctx, "soup")
		assert.EqualError(t, err, "db gone")
	})

	t.Run("all_miss", func(t *testing.T) {
		first.EXPECT().GetPriors(gomock.Any(), "x").Return(estimation.FoodPriors{}, nutrition.ErrPriorsNotFound)
		second.EXPECT().GetPriors(gomock.Any(), "x").Return(estimation.FoodPriors{}, nutrition.ErrPriorsNotFound)

		_, err := chain.GetPriors(ctx, "x")
		assert.ErrorIs(t, err, nutrition.ErrPriorsNotFound)
	})
}
