package meallog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"
)

type Source string

const (
	SourceCamera Source = "camera"
	SourceManual Source = "manual"
)

const (
	DetectedFoodLabel = "Detected Food"

	maxMealCalories = 2000
	maxMealGrams    = 2000
	maxProteinG     = 200
	maxCarbsG       = 300
	maxFatG         = 200
)

var (
	ErrMealNotFound = errors.New("meal not found")
	ErrInvalidMeal  = errors.New("invalid meal")
)

type Meal struct {
	ID        int       `json:"id"`
	Label     string    `json:"label"`
	Calories  int       `json:"calories"`
	ProteinG  float64   `json:"proteinG"`
	CarbsG    float64   `json:"carbsG"`
	FatG      float64   `json:"fatG"`
	Portion   float64   `json:"portion"`
	Source    Source    `json:"source"`
	VolumeML  float64   `json:"volumeML"`
	Sigma     float64   `json:"sigma"`
	Evidence  []string  `json:"evidence"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Meal) Validate() error {
	switch {
	case strings.TrimSpace(m.Label) == "":
		return fmt.Errorf("%w: label empty", ErrInvalidMeal)
	case m.Calories < 0:
		return fmt.Errorf("%w: negative calories", ErrInvalidMeal)
	case m.ProteinG < 0 || m.CarbsG < 0 || m.FatG < 0:
		return fmt.Errorf("%w: negative macros", ErrInvalidMeal)
	case m.Portion <= 0:
		return fmt.Errorf("%w: portion must be positive", ErrInvalidMeal)
	case m.Source != SourceCamera && m.Source != SourceManual:
		return fmt.Errorf("%w: unknown source [%s]", ErrInvalidMeal, m.Source)
	}
	return nil
}

// FromCalorieResult converts a camera result into a meal. Label, volume and
// macros come from the first item, calories from the fused total. It returns
// false when the result has no items.
func FromCalorieResult(result estimation.CalorieResult, capturedAt time.Time) (Meal, bool) {
	if len(result.Items) == 0 {
		return Meal{}, false
	}
	item := result.Items[0]

	label := strings.TrimSpace(item.Label)
	if label == "" || strings.EqualFold(label, estimation.GeometryLabel) {
		label = DetectedFoodLabel
	}

	fused := math.Max(0, result.Total.Mu)

	density := 1.0
	if item.DensityGPerML != nil && *item.DensityGPerML > 0 {
		density = *item.DensityGPerML
	}
	grams := math.Min(math.Max(0, item.VolumeML*density), maxMealGrams)

	var protein, carbs, fat float64
	if m := item.MacrosPer100g; m != nil {
		protein = math.Max(0, m.ProteinG*grams/100)
		carbs = math.Max(0, m.CarbsG*grams/100)
		fat = math.Max(0, m.FatG*grams/100)
	} else {
		// the split uses the uncapped total
		protein = fused * 0.25 / 4
		carbs = fused * 0.45 / 4
		fat = fused * 0.30 / 9
	}

	return Meal{
		Label:     label,
		Calories:  int(math.Round(math.Min(fused, maxMealCalories))),
		ProteinG:  round1(math.Min(protein, maxProteinG)),
		CarbsG:    round1(math.Min(carbs, maxCarbsG)),
		FatG:      round1(math.Min(fat, maxFatG)),
		Portion:   1,
		Source:    SourceCamera,
		VolumeML:  round1(math.Max(0, item.VolumeML)),
		Sigma:     round1(math.Max(0, result.Total.Sigma)),
		Evidence:  estimation.MergeEvidence(item.Evidence),
		CreatedAt: capturedAt,
	}, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
