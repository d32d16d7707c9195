package capture

import (
	"context"

	"github.com/habitpet/caloriecam/internal/estimation"
)

//go:generate mockgen -source=$GOFILE -destination=deps_mocks_test.go -package=capture_test

type foodAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*estimation.AnalyzerObservation, error)
}

type priorsSource interface {
	GetPriors(ctx context.Context, label string) (estimation.FoodPriors, error)
}
