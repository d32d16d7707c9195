package analyzer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitpet/caloriecam/internal/analyzer"
	"github.com/habitpet/caloriecam/internal/estimation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedAnalyzer_Analyze(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockAnalyzer(ctrl)
	cached := analyzer.NewCachedAnalyzer(next, 0, time.Minute)
	ctx := context.Background()

	image := []byte("plate-of-rice")
	obs := &estimation.AnalyzerObservation{
		Label:    "Rice",
		Calories: 260,
		Sigma:    52,
		Path:     estimation.PathGeometry,
		Evidence: []string{"Analyzer"},
	}

	next.EXPECT().Analyze(gomock.Any(), image, "image/jpeg").Return(obs, nil).Times(1)

	got, err := cached.Analyze(ctx, image, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, obs, got)

	// second call is served from cache
	got, err = cached.Analyze(ctx, image, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, obs, got)
	assert.Equal(t, int64(1), cached.EntryCount())

	// same bytes with a different mime type are a different entry
	next.EXPECT().Analyze(gomock.Any(), image, "image/png").Return(obs, nil).Times(1)
	_, err = cached.Analyze(ctx, image, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.EntryCount())
}

func TestCachedAnalyzer_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockAnalyzer(ctrl)
	cached := analyzer.NewCachedAnalyzer(next, 0, 0)
	ctx := context.Background()

	image := []byte("blurry")
	next.EXPECT().Analyze(gomock.Any(), image, "image/jpeg").Return(nil, errors.New("timeout")).Times(2)

	_, err := cached.Analyze(ctx, image, "image/jpeg")
	assert.EqualError(t, err, "timeout")
	_, err = cached.Analyze(ctx, image, "image/jpeg")
	assert.EqualError(t, err, "timeout")
	assert.Equal(t, int64(0), cached.EntryCount())
}
